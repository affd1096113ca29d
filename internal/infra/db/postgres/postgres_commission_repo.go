package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ repository.CommissionRepository = (*commissionRepo)(nil)

type commissionRepo struct{ pool *pgxpool.Pool }

func NewCommissionRepo(pool *pgxpool.Pool) *commissionRepo {
	return &commissionRepo{pool: pool}
}

const commissionColumns = `id, payment_id, event_id, organizer_id, base_amount, rate_bp, amount, organizer_amount, status, computed_at, paid_at`

// Save inserts only. The unique index on payment_id is the idempotency
// backstop: a duplicate insert surfaces as domain.ErrAlreadyExists so the
// caller can fall back to the row that won.
func (r *commissionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	const q = `
INSERT INTO commissions (
  id, payment_id, event_id, organizer_id, base_amount, rate_bp, amount, organizer_amount, status, computed_at, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
);`

	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.PaymentID, c.EventID, c.OrganizerID, c.BaseAmount, c.RateBp, c.Amount, c.OrganizerAmount, c.Status, c.ComputedAt, c.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *commissionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Commission, error) {
	const q = `SELECT ` + commissionColumns + ` FROM commissions WHERE payment_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}

	c := &model.Commission{}
	if err := row.Scan(&c.ID, &c.PaymentID, &c.EventID, &c.OrganizerID, &c.BaseAmount, &c.RateBp, &c.Amount, &c.OrganizerAmount, &c.Status, &c.ComputedAt, &c.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *commissionRepo) ListByOrganizer(ctx context.Context, tx repository.Tx, organizerID string, limit, offset int) ([]*model.Commission, error) {
	const q = `SELECT ` + commissionColumns + ` FROM commissions WHERE organizer_id=$1 ORDER BY computed_at DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, organizerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Commission
	for rows.Next() {
		c := &model.Commission{}
		if err := rows.Scan(&c.ID, &c.PaymentID, &c.EventID, &c.OrganizerID, &c.BaseAmount, &c.RateBp, &c.Amount, &c.OrganizerAmount, &c.Status, &c.ComputedAt, &c.PaidAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
