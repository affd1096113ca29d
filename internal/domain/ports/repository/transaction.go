package repository

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.MomoTransaction) error
	// FindByExternalID locks the row when called inside a transaction.
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.MomoTransaction, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.MomoTransaction, error)
	// UpdateStatusIfPending finalizes the transaction only when it is still
	// PENDING; reports whether a row changed.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.TransactionStatus, errorCode, errorMsg string, webhookData map[string]interface{}) (bool, error)
}
