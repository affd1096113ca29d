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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, payer_id, purpose, target_id, amount, fee, net_amount, status, method, phone, created_at, updated_at, completed_at, expires_at, response_data, external_ref, retry_of`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, reference, payer_id, purpose, target_id, amount, fee, net_amount, status, method, phone, created_at, updated_at, completed_at, expires_at, response_data, external_ref, retry_of
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
) ON CONFLICT (id) DO UPDATE SET
  status=$9, phone=$11, updated_at=$13, completed_at=$14, response_data=$16, external_ref=$17;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.PayerID, p.Purpose, p.TargetID, p.Amount, p.Fee, p.NetAmount, p.Status, p.Method, p.Phone, p.CreatedAt, p.UpdatedAt, p.CompletedAt, p.ExpiresAt, p.ResponseData, p.ExternalRef, p.RetryOf)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickPayment(ctx, tx, q, id)
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickPayment(ctx, tx, q, reference)
}

func (r *paymentRepo) pickPayment(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.Reference, &p.PayerID, &p.Purpose, &p.TargetID, &p.Amount, &p.Fee, &p.NetAmount, &p.Status, &p.Method, &p.Phone, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.ExpiresAt, &p.ResponseData, &p.ExternalRef, &p.RetryOf); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// UpdateStatusIf is the CAS every ledger transition goes through. The
// `from` set lands in the WHERE clause, so a concurrent writer that moved
// the row first makes this a zero-row update.
func (r *paymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, externalRef *string, completedAt *time.Time) (bool, error) {
	const q = `
UPDATE payments SET status=$3, external_ref=COALESCE($4, external_ref), completed_at=COALESCE($5, completed_at), updated_at=NOW()
WHERE id=$1 AND status = ANY($2);`

	fromSet := make([]string, 0, len(from))
	for _, s := range from {
		fromSet = append(fromSet, string(s))
	}
	tag, err := execSQL(ctx, r.pool, tx, q, id, fromSet, to, externalRef, completedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListPendingExpiredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='PENDING' AND expires_at < $1 ORDER BY expires_at LIMIT $2;`
	return r.listPayments(ctx, tx, q, cutoff, limit)
}

func (r *paymentRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='PROCESSING' AND updated_at < $1 ORDER BY updated_at LIMIT $2;`
	return r.listPayments(ctx, tx, q, cutoff, limit)
}

func (r *paymentRepo) listPayments(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := &model.Payment{}
		if err := rows.Scan(&p.ID, &p.Reference, &p.PayerID, &p.Purpose, &p.TargetID, &p.Amount, &p.Fee, &p.NetAmount, &p.Status, &p.Method, &p.Phone, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.ExpiresAt, &p.ResponseData, &p.ExternalRef, &p.RetryOf); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payments WHERE status='SUCCEEDED' AND completed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
