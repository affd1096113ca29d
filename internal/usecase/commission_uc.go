package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ CommissionUseCase = (*commissionUC)(nil)

// CommissionUseCase derives the platform's cut of a ticket sale from a
// successful payment, once per payment.
type CommissionUseCase interface {
	// Compute requires p.Purpose == TICKET and p.Status == SUCCEEDED.
	// A second call for the same payment returns the existing commission.
	Compute(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Commission, error)
}

type commissionUC struct {
	commissions repository.CommissionRepository
	tickets     repository.TicketRepository
	events      repository.EventRepository
	subs        repository.SubscriptionRepository
	plans       repository.SubscriptionPlanRepository
	cfg         config.CommissionConfig
	log         *zerolog.Logger
}

func NewCommissionUseCase(
	commissions repository.CommissionRepository,
	tickets repository.TicketRepository,
	events repository.EventRepository,
	subs repository.SubscriptionRepository,
	plans repository.SubscriptionPlanRepository,
	cfg config.CommissionConfig,
	logger *zerolog.Logger,
) *commissionUC {
	l := logger.With().Str("component", "CommissionUC").Logger()
	return &commissionUC{
		commissions: commissions,
		tickets:     tickets,
		events:      events,
		subs:        subs,
		plans:       plans,
		cfg:         cfg,
		log:         &l,
	}
}

func (u *commissionUC) Compute(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.Commission, error) {
	if p.Purpose != model.PurposeTicket || p.Status != model.PaymentStatusSucceeded {
		return nil, domain.ErrInvalidArgument
	}
	if existing, err := u.commissions.FindByPaymentID(ctx, tx, p.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ticket, err := u.tickets.FindByID(ctx, tx, p.TargetID)
	if err != nil {
		return nil, err
	}
	event, err := u.events.FindByID(ctx, tx, ticket.EventID)
	if err != nil {
		return nil, err
	}

	rate, err := u.rateFor(ctx, tx, event)
	if err != nil {
		return nil, err
	}
	amount := model.CommissionAmount(p.Amount, rate)
	c := &model.Commission{
		ID:              uuid.NewString(),
		PaymentID:       p.ID,
		EventID:         event.ID,
		OrganizerID:     event.OrganizerID,
		BaseAmount:      p.Amount,
		RateBp:          rate,
		Amount:          amount,
		OrganizerAmount: p.Amount - amount,
		Status:          model.CommissionStatusComputed,
		ComputedAt:      time.Now(),
	}
	if err := u.commissions.Save(ctx, tx, c); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// lost a race with a concurrent compute for the same payment
			return u.commissions.FindByPaymentID(ctx, tx, p.ID)
		}
		return nil, err
	}
	u.log.Info().Str("payment_id", p.ID).Int64("rate_bp", rate).Int64("commission", amount).Msg("commission computed")
	return c, nil
}

// rateFor resolves the applicable rate: the per-event override when set,
// the reduced rate when the organizer holds an active qualifying plan,
// else the platform default.
func (u *commissionUC) rateFor(ctx context.Context, tx repository.Tx, event *model.Event) (int64, error) {
	if event.CommissionRateBp > 0 {
		return event.CommissionRateBp, nil
	}
	sub, err := u.subs.FindActiveByUser(ctx, tx, event.OrganizerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return u.cfg.DefaultRateBp, nil
		}
		return 0, err
	}
	plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
	if err != nil {
		return 0, err
	}
	if plan.ReducedCommission {
		return u.cfg.ReducedRateBp, nil
	}
	return u.cfg.DefaultRateBp, nil
}
