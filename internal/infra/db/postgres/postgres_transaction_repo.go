package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, payment_id, operator, phone, external_id, status, error_code, error_msg, initiated_at, confirmed_at, webhook_received, webhook_data`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.MomoTransaction) error {
	const q = `
INSERT INTO momo_transactions (
  id, payment_id, operator, phone, external_id, status, error_code, error_msg, initiated_at, confirmed_at, webhook_received, webhook_data
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  status=$6, error_code=$7, error_msg=$8, confirmed_at=$10, webhook_received=$11, webhook_data=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.PaymentID, t.Operator, t.Phone, t.ExternalID, t.Status, t.ErrorCode, t.ErrorMsg, t.InitiatedAt, t.ConfirmedAt, t.WebhookReceived, t.WebhookData)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.MomoTransaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM momo_transactions WHERE external_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickTransaction(ctx, tx, q, externalID)
}

func (r *transactionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.MomoTransaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM momo_transactions WHERE payment_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickTransaction(ctx, tx, q, paymentID)
}

func (r *transactionRepo) pickTransaction(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.MomoTransaction, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}

	t := &model.MomoTransaction{}
	if err := row.Scan(&t.ID, &t.PaymentID, &t.Operator, &t.Phone, &t.ExternalID, &t.Status, &t.ErrorCode, &t.ErrorMsg, &t.InitiatedAt, &t.ConfirmedAt, &t.WebhookReceived, &t.WebhookData); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

// UpdateStatusIfPending finalizes the operator transaction. The PENDING
// guard in the WHERE clause makes the first terminal callback win and
// every later one a zero-row update.
func (r *transactionRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, errorCode, errorMsg string, webhookData map[string]interface{}) (bool, error) {
	const q = `
UPDATE momo_transactions SET status=$2, error_code=$3, error_msg=$4, webhook_received=TRUE, webhook_data=COALESCE($5, webhook_data), confirmed_at=NOW()
WHERE id=$1 AND status='PENDING';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, status, errorCode, errorMsg, webhookData)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}
