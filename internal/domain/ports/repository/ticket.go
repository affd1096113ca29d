package repository

import (
	"context"
	"time"

	"spotvibe-backend/internal/domain/model"
)

type TicketRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Ticket) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Ticket, error)
	// UpdateStatusIf moves the ticket from `from` to `to` atomically.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from, to model.TicketStatus, qrPayload string, usedAt *time.Time) (bool, error)
}
