package repository

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, e *model.AuditEntry) error
	ListByEntity(ctx context.Context, tx Tx, ref model.EntityRef, limit int) ([]*model.AuditEntry, error)
}
