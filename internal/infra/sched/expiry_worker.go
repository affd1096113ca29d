package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/ports/repository"
	"spotvibe-backend/internal/usecase"
)

const expiryBatchSize = 100

// ExpiryWorker sweeps payments the callback never reached. PENDING rows
// past their expiration window go straight to EXPIRED; stale PROCESSING
// rows get one reconciliation poll against the operator first, since the
// charge may have completed with the callback lost in transit.
type ExpiryWorker struct {
	interval   time.Duration
	staleAfter time.Duration
	payments   repository.PaymentRepository
	paymentUC  usecase.PaymentUseCase
	txUC       usecase.TransactionUseCase
	log        *zerolog.Logger
}

func NewExpiryWorker(interval, staleAfter time.Duration, payments repository.PaymentRepository, paymentUC usecase.PaymentUseCase, txUC usecase.TransactionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:   interval,
		staleAfter: staleAfter,
		payments:   payments,
		paymentUC:  paymentUC,
		txUC:       txUC,
		log:        &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweepPending(ctx)
			w.sweepProcessing(ctx)
		}
	}
}

func (w *ExpiryWorker) sweepPending(ctx context.Context) {
	stale, err := w.payments.ListPendingExpiredBefore(ctx, nil, time.Now(), expiryBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("listing expired pending payments")
		return
	}
	for _, p := range stale {
		if _, err := w.paymentUC.Expire(ctx, p.ID); err != nil {
			// a concurrent transition is fine, the sweep is best-effort
			if !errors.Is(err, domain.ErrInvalidTransition) {
				w.log.Error().Err(err).Str("payment_id", p.ID).Msg("expiring payment")
			}
			continue
		}
		w.log.Info().Str("payment_id", p.ID).Msg("payment expired with no charge initiated")
	}
}

func (w *ExpiryWorker) sweepProcessing(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.payments.ListProcessingOlderThan(ctx, nil, cutoff, expiryBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("listing stale processing payments")
		return
	}
	for _, p := range stale {
		t, err := w.txUC.Reconcile(ctx, p.ID)
		if err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("reconciling stale payment")
			continue
		}
		if t.Status.Terminal() {
			w.log.Info().
				Str("payment_id", p.ID).
				Str("status", string(t.Status)).
				Msg("stale payment settled by reconciliation")
			continue
		}
		// operator still reports the charge in flight past the window
		if p.ExpiresAt.Before(time.Now()) {
			if _, err := w.paymentUC.Expire(ctx, p.ID); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
				w.log.Error().Err(err).Str("payment_id", p.ID).Msg("expiring stale payment")
			}
		}
	}
}
