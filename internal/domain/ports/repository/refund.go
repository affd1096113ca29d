package repository

import (
	"context"
	"time"

	"spotvibe-backend/internal/domain/model"
)

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	// FindActiveByPaymentID returns the non-terminal, non-rejected refund
	// for a payment, or domain.ErrNotFound.
	FindActiveByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Refund, error)
	UpdateStatusIf(ctx context.Context, tx Tx, id string, from, to model.RefundStatus, processorID, operatorRef, comment string, at time.Time) (bool, error)
}
