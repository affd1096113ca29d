package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"spotvibe-backend/internal/infra/metrics"
	"spotvibe-backend/internal/usecase"
)

// UsageResetWorker handles subscription housekeeping: ending grants past
// their window and zeroing the monthly event counters.
type UsageResetWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewUsageResetWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *UsageResetWorker {
	wLog := logger.With().Str("component", "UsageResetWorker").Logger()
	return &UsageResetWorker{interval: interval, subUC: subUC, log: &wLog}
}

func (w *UsageResetWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting usage reset worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastResetMonth := time.Now().Month()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping usage reset worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.FinishExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("finishing expired subscriptions")
			}
			if n > 0 {
				metrics.IncSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions finished")
			}

			// counters reset once per calendar month
			if m := time.Now().Month(); m != lastResetMonth {
				reset, err := w.subUC.ResetMonthlyUsage(ctx)
				if err != nil {
					w.log.Error().Err(err).Msg("resetting monthly usage")
					continue
				}
				lastResetMonth = m
				w.log.Info().Int("count", reset).Msg("monthly usage counters reset")
			}
		}
	}
}
