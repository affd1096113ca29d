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

var (
	_ repository.SubscriptionRepository     = (*subscriptionRepo)(nil)
	_ repository.SubscriptionPlanRepository = (*subscriptionPlanRepo)(nil)
)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, start_at, end_at, status, amount_paid, auto_renew, monthly_event_count, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, start_at, end_at, status, amount_paid, auto_renew, monthly_event_count, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, start_at=$4, end_at=$5, status=$6, amount_paid=$7, auto_renew=$8, monthly_event_count=$9, updated_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.StartAt, s.EndAt, s.Status, s.AmountPaid, s.AutoRenew, s.MonthlyEventCount, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.pickSubscription(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status='ACTIF' AND end_at > NOW() ORDER BY end_at DESC LIMIT 1;`
	return r.pickSubscription(ctx, tx, q, userID)
}

func (r *subscriptionRepo) pickSubscription(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}

	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartAt, &s.EndAt, &s.Status, &s.AmountPaid, &s.AutoRenew, &s.MonthlyEventCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) ResetMonthlyCounters(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `UPDATE subscriptions SET monthly_event_count=0, updated_at=NOW() WHERE status='ACTIF' AND monthly_event_count > 0;`
	tag, err := execSQL(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) ExpireEnded(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `UPDATE subscriptions SET status='EXPIRE', updated_at=NOW() WHERE status='ACTIF' AND end_at <= NOW();`
	tag, err := execSQL(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

type subscriptionPlanRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionPlanRepo(pool *pgxpool.Pool) *subscriptionPlanRepo {
	return &subscriptionPlanRepo{pool: pool}
}

const planColumns = `id, name, price, duration_days, reduced_commission, monthly_event_quota, created_at`

func (r *subscriptionPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (
  id, name, price, duration_days, reduced_commission, monthly_event_quota, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, duration_days=$4, reduced_commission=$5, monthly_event_quota=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.DurationDays, p.ReducedCommission, p.MonthlyEventQuota, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	p := &model.SubscriptionPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.ReducedCommission, &p.MonthlyEventQuota, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *subscriptionPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY price;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p := &model.SubscriptionPlan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.ReducedCommission, &p.MonthlyEventQuota, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
