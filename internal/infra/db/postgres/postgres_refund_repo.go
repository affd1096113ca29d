package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

const refundColumns = `id, payment_id, requester_id, amount, reason, description, status, requested_at, processed_at, completed_at, processor_id, operator_ref, admin_comment`

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, f *model.Refund) error {
	const q = `
INSERT INTO refunds (
  id, payment_id, requester_id, amount, reason, description, status, requested_at, processed_at, completed_at, processor_id, operator_ref, admin_comment
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  status=$7, processed_at=$9, completed_at=$10, processor_id=$11, operator_ref=$12, admin_comment=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.PaymentID, f.RequesterID, f.Amount, f.Reason, f.Description, f.Status, f.RequestedAt, f.ProcessedAt, f.CompletedAt, f.ProcessorID, f.OperatorRef, f.AdminComment)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	q := `SELECT ` + refundColumns + ` FROM refunds WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickRefund(ctx, tx, q, id)
}

func (r *refundRepo) FindActiveByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Refund, error) {
	q := `SELECT ` + refundColumns + ` FROM refunds WHERE payment_id=$1 AND status IN ('DEMANDE','EN_COURS','APPROUVE') LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickRefund(ctx, tx, q, paymentID)
}

func (r *refundRepo) pickRefund(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Refund, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}

	f := &model.Refund{}
	if err := row.Scan(&f.ID, &f.PaymentID, &f.RequesterID, &f.Amount, &f.Reason, &f.Description, &f.Status, &f.RequestedAt, &f.ProcessedAt, &f.CompletedAt, &f.ProcessorID, &f.OperatorRef, &f.AdminComment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return f, nil
}

func (r *refundRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.RefundStatus, processorID, operatorRef, comment string, at time.Time) (bool, error) {
	const q = `
UPDATE refunds SET
  status=$3,
  processor_id=COALESCE(NULLIF($4,''), processor_id),
  operator_ref=COALESCE(NULLIF($5,''), operator_ref),
  admin_comment=COALESCE(NULLIF($6,''), admin_comment),
  processed_at=COALESCE(processed_at, $7),
  completed_at=CASE WHEN $3 IN ('REMBOURSE','REJETE') THEN $7 ELSE completed_at END
WHERE id=$1 AND status=$2;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, from, to, processorID, operatorRef, comment, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}
