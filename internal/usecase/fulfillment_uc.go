package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/domain/ports/repository"
	"spotvibe-backend/internal/infra/metrics"
)

var _ FulfillmentUseCase = (*fulfillmentUC)(nil)

// FulfillmentUseCase activates the entity a payment funds, exactly once
// per transition into SUCCEEDED (exactly-once is enforced by the ledger's
// idempotent MarkSucceeded, which is the only caller).
type FulfillmentUseCase interface {
	// Fulfill routes by purpose and returns the activated entity. A missing
	// or conflicting target is a fatal consistency error, never retried:
	// retrying could double-grant.
	Fulfill(ctx context.Context, tx repository.Tx, p *model.Payment) (interface{}, error)
}

type fulfillmentUC struct {
	tickets repository.TicketRepository
	subs    repository.SubscriptionRepository
	plans   repository.SubscriptionPlanRepository
	qr      adapter.QRSigner
	log     *zerolog.Logger
}

func NewFulfillmentUseCase(
	tickets repository.TicketRepository,
	subs repository.SubscriptionRepository,
	plans repository.SubscriptionPlanRepository,
	qr adapter.QRSigner,
	logger *zerolog.Logger,
) *fulfillmentUC {
	l := logger.With().Str("component", "FulfillmentUC").Logger()
	return &fulfillmentUC{tickets: tickets, subs: subs, plans: plans, qr: qr, log: &l}
}

func (u *fulfillmentUC) Fulfill(ctx context.Context, tx repository.Tx, p *model.Payment) (interface{}, error) {
	switch p.Purpose {
	case model.PurposeTicket:
		return u.fulfillTicket(ctx, tx, p)
	case model.PurposeSubscription:
		return u.fulfillSubscription(ctx, tx, p)
	default:
		return nil, domain.ErrInvalidArgument
	}
}

func (u *fulfillmentUC) fulfillTicket(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Ticket, error) {
	t, err := u.tickets.FindByID(ctx, tx, p.TargetID)
	if err != nil {
		u.log.Error().Str("payment_id", p.ID).Str("ticket_id", p.TargetID).Msg("fulfillment target missing")
		return nil, domain.ErrFulfillmentInconsistency
	}
	if t.Status != model.TicketStatusPending {
		u.log.Error().Str("payment_id", p.ID).Str("ticket_id", t.ID).Str("status", string(t.Status)).
			Msg("ticket not pending at fulfillment time")
		return nil, domain.ErrFulfillmentInconsistency
	}
	qr := u.qr.Payload(t)
	ok, err := u.tickets.UpdateStatusIf(ctx, tx, t.ID, model.TicketStatusPending, model.TicketStatusPaid, qr, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrFulfillmentInconsistency
	}
	t.Status = model.TicketStatusPaid
	t.QRPayload = qr
	metrics.IncFulfillment("ticket")
	return t, nil
}

func (u *fulfillmentUC) fulfillSubscription(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Subscription, error) {
	s, err := u.subs.FindByID(ctx, tx, p.TargetID)
	if err != nil {
		u.log.Error().Str("payment_id", p.ID).Str("subscription_id", p.TargetID).Msg("fulfillment target missing")
		return nil, domain.ErrFulfillmentInconsistency
	}
	if s.Status != model.SubscriptionStatusPending {
		u.log.Error().Str("payment_id", p.ID).Str("subscription_id", s.ID).Str("status", string(s.Status)).
			Msg("subscription not pending at fulfillment time")
		return nil, domain.ErrFulfillmentInconsistency
	}
	plan, err := u.plans.FindByID(ctx, tx, s.PlanID)
	if err != nil {
		return nil, domain.ErrFulfillmentInconsistency
	}
	s.Activate(plan, p.Amount, time.Now())
	if err := u.subs.Save(ctx, tx, s); err != nil {
		return nil, err
	}
	metrics.IncFulfillment("subscription")
	return s, nil
}
