package repository

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

type CommissionRepository interface {
	// Save inserts a commission; the unique index on payment_id makes a
	// second insert for the same payment return domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, c *model.Commission) error
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Commission, error)
	ListByOrganizer(ctx context.Context, tx Tx, organizerID string, limit, offset int) ([]*model.Commission, error)
}
