package notify

import (
	"context"

	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/infra/worker"
)

var _ adapter.Notifier = (*Dispatcher)(nil)

// Dispatcher fans status-change events out on the worker pool. Events are
// fire-and-forget: a full queue or failed delivery never surfaces to the
// payment transaction that produced the event.
type Dispatcher struct {
	pool *worker.Pool
	log  *zerolog.Logger
}

func NewDispatcher(pool *worker.Pool, logger *zerolog.Logger) *Dispatcher {
	dLog := logger.With().Str("component", "NotifyDispatcher").Logger()
	return &Dispatcher{pool: pool, log: &dLog}
}

func (d *Dispatcher) PaymentStatusChanged(ctx context.Context, p *model.Payment, old model.PaymentStatus) {
	reference, payerID := p.Reference, p.PayerID
	status := p.Status
	err := d.pool.Submit(func(ctx context.Context) error {
		// Delivery channels (SMS, push) hook in here; for now the event
		// trail is the structured log.
		d.log.Info().
			Str("reference", reference).
			Str("payer_id", payerID).
			Str("from", string(old)).
			Str("to", string(status)).
			Msg("payment status changed")
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Str("reference", reference).Msg("notification dropped")
	}
}

func (d *Dispatcher) RefundStatusChanged(ctx context.Context, r *model.Refund) {
	id, paymentID := r.ID, r.PaymentID
	status := r.Status
	err := d.pool.Submit(func(ctx context.Context) error {
		d.log.Info().
			Str("refund_id", id).
			Str("payment_id", paymentID).
			Str("status", string(status)).
			Msg("refund status changed")
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Str("refund_id", id).Msg("notification dropped")
	}
}
