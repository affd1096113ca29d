package repository

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

// EventRepository is the read model over the event catalog. The catalog
// itself is owned elsewhere; the payment core only reads.
type EventRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Event, error)
	Save(ctx context.Context, tx Tx, e *model.Event) error
}
