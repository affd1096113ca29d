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

var _ repository.TicketRepository = (*ticketRepo)(nil)

type ticketRepo struct{ pool *pgxpool.Pool }

func NewTicketRepo(pool *pgxpool.Pool) *ticketRepo {
	return &ticketRepo{pool: pool}
}

const ticketColumns = `id, event_id, buyer_id, unit_price, quantity, status, qr_payload, purchased_at, used_at`

func (r *ticketRepo) Save(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	const q = `
INSERT INTO tickets (
  id, event_id, buyer_id, unit_price, quantity, status, qr_payload, purchased_at, used_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  status=$6, qr_payload=$7, used_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.EventID, t.BuyerID, t.UnitPrice, t.Quantity, t.Status, t.QRPayload, t.PurchasedAt, t.UsedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ticketRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	t := &model.Ticket{}
	if err := row.Scan(&t.ID, &t.EventID, &t.BuyerID, &t.UnitPrice, &t.Quantity, &t.Status, &t.QRPayload, &t.PurchasedAt, &t.UsedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func (r *ticketRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, from, to model.TicketStatus, qrPayload string, usedAt *time.Time) (bool, error) {
	const q = `
UPDATE tickets SET status=$3, qr_payload=COALESCE(NULLIF($4,''), qr_payload), used_at=COALESCE($5, used_at)
WHERE id=$1 AND status=$2;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, from, to, qrPayload, usedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}
