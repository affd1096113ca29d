package repository

import (
	"context"
	"time"

	"spotvibe-backend/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindByID locks the row (FOR UPDATE) when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)
	// UpdateStatusIf atomically moves id from one of `from` to `to` and
	// reports whether a row changed. This CAS is what makes concurrent
	// duplicate deliveries safe.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from []model.PaymentStatus, to model.PaymentStatus, externalRef *string, completedAt *time.Time) (bool, error)
	ListPendingExpiredBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
	ListProcessingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
	SumSucceededByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}
