package repository

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// ResetMonthlyCounters zeroes usage counters for all active
	// subscriptions; returns the number of rows touched.
	ResetMonthlyCounters(ctx context.Context, tx Tx) (int, error)
	ExpireEnded(ctx context.Context, tx Tx) (int, error)
}

type SubscriptionPlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
}
