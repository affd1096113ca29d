package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ repository.AuditRepository = (*auditRepo)(nil)

type auditRepo struct{ pool *pgxpool.Pool }

func NewAuditRepo(pool *pgxpool.Pool) *auditRepo {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEntry) error {
	const q = `
INSERT INTO audit_log (id, entity_kind, entity_id, old_status, new_status, actor, detail, at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Entity.Kind, e.Entity.ID, e.OldStatus, e.NewStatus, e.Actor, e.Detail, e.At)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *auditRepo) ListByEntity(ctx context.Context, tx repository.Tx, ref model.EntityRef, limit int) ([]*model.AuditEntry, error) {
	const q = `
SELECT id, entity_kind, entity_id, old_status, new_status, actor, detail, at
FROM audit_log WHERE entity_kind=$1 AND entity_id=$2 ORDER BY at DESC LIMIT $3;`

	rows, err := queryRows(ctx, r.pool, tx, q, ref.Kind, ref.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Entity.Kind, &e.Entity.ID, &e.OldStatus, &e.NewStatus, &e.Actor, &e.Detail, &e.At); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
