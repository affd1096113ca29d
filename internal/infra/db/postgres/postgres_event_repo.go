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

var _ repository.EventRepository = (*eventRepo)(nil)

type eventRepo struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *eventRepo {
	return &eventRepo{pool: pool}
}

const eventColumns = `id, organizer_id, title, ticket_price, commission_rate_bp, ticketing_enabled, capacity, start_at`

func (r *eventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	e := &model.Event{}
	if err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.TicketPrice, &e.CommissionRateBp, &e.TicketingEnabled, &e.Capacity, &e.StartAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *eventRepo) Save(ctx context.Context, tx repository.Tx, e *model.Event) error {
	const q = `
INSERT INTO events (
  id, organizer_id, title, ticket_price, commission_rate_bp, ticketing_enabled, capacity, start_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  title=$3, ticket_price=$4, commission_rate_bp=$5, ticketing_enabled=$6, capacity=$7, start_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.OrganizerID, e.Title, e.TicketPrice, e.CommissionRateBp, e.TicketingEnabled, e.Capacity, e.StartAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
