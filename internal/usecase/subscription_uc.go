package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain/ports/repository"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase covers the maintenance side of plan grants. The
// activation side lives in FulfillmentUseCase, since it happens only as a
// consequence of a successful payment.
type SubscriptionUseCase interface {
	// FinishExpired moves subscriptions past their end date to EXPIRE.
	FinishExpired(ctx context.Context) (int, error)
	// ResetMonthlyUsage zeroes active subscriptions' monthly counters.
	// Runs on a schedule independent of payment events.
	ResetMonthlyUsage(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, log: &l}
}

func (u *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	return u.subs.ExpireEnded(ctx, nil)
}

func (u *subscriptionUC) ResetMonthlyUsage(ctx context.Context) (int, error) {
	n, err := u.subs.ResetMonthlyCounters(ctx, nil)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.Info().Int("count", n).Msg("monthly usage counters reset")
	}
	return n, nil
}
