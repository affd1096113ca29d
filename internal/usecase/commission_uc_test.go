package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
)

func TestCommissionUC_RateResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("a per-event override beats every other rate", func(t *testing.T) {
		e := newUCEnv()
		ev, _, p := e.seedTicketSale(ctx)
		ev.CommissionRateBp = 750
		_ = e.events.Save(ctx, nil, ev)
		if _, _, err := e.transactionUC.Initiate(ctx, p.ID); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		if _, err := e.paymentUC.MarkSucceeded(ctx, p.ID, "op-ref-1"); err != nil {
			t.Fatalf("settle failed: %v", err)
		}

		c, err := e.commissions.FindByPaymentID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("expected a commission: %v", err)
		}
		if c.RateBp != 750 {
			t.Errorf("expected override rate 750bp, got %d", c.RateBp)
		}
		if c.Amount != 750 {
			t.Errorf("expected commission 750, got %d", c.Amount)
		}
	})

	t.Run("an active reduced-commission plan lowers the rate", func(t *testing.T) {
		e := newUCEnv()
		ev, _, p := e.seedTicketSale(ctx)
		end := time.Now().Add(24 * time.Hour)
		start := time.Now().Add(-24 * time.Hour)
		_ = e.plans.Save(ctx, nil, &model.SubscriptionPlan{ID: "plan-pro", Name: "Pro", ReducedCommission: true})
		_ = e.subs.Save(ctx, nil, &model.Subscription{
			ID: "sub-1", UserID: ev.OrganizerID, PlanID: "plan-pro",
			Status: model.SubscriptionStatusActive, StartAt: &start, EndAt: &end,
		})
		if _, _, err := e.transactionUC.Initiate(ctx, p.ID); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		if _, err := e.paymentUC.MarkSucceeded(ctx, p.ID, "op-ref-1"); err != nil {
			t.Fatalf("settle failed: %v", err)
		}

		c, _ := e.commissions.FindByPaymentID(ctx, nil, p.ID)
		if c.RateBp != 500 {
			t.Errorf("expected reduced rate 500bp, got %d", c.RateBp)
		}
	})

	t.Run("a plan without the benefit keeps the default rate", func(t *testing.T) {
		e := newUCEnv()
		ev, _, p := e.seedTicketSale(ctx)
		end := time.Now().Add(24 * time.Hour)
		_ = e.plans.Save(ctx, nil, &model.SubscriptionPlan{ID: "plan-basic", Name: "Basique"})
		_ = e.subs.Save(ctx, nil, &model.Subscription{
			ID: "sub-1", UserID: ev.OrganizerID, PlanID: "plan-basic",
			Status: model.SubscriptionStatusActive, EndAt: &end,
		})
		if _, _, err := e.transactionUC.Initiate(ctx, p.ID); err != nil {
			t.Fatalf("initiate failed: %v", err)
		}
		if _, err := e.paymentUC.MarkSucceeded(ctx, p.ID, "op-ref-1"); err != nil {
			t.Fatalf("settle failed: %v", err)
		}

		c, _ := e.commissions.FindByPaymentID(ctx, nil, p.ID)
		if c.RateBp != 1000 {
			t.Errorf("expected default rate 1000bp, got %d", c.RateBp)
		}
	})
}

func TestCommissionUC_Compute(t *testing.T) {
	ctx := context.Background()

	t.Run("the split always sums to the base amount", func(t *testing.T) {
		e := newUCEnv()
		ev, tk, _ := e.seedTicketSale(ctx)
		p := &model.Payment{
			ID:       "55555555-5555-5555-5555-555555555555",
			Purpose:  model.PurposeTicket,
			TargetID: tk.ID,
			Amount:   10_005,
			Status:   model.PaymentStatusSucceeded,
		}

		c, err := e.commissionUC.Compute(ctx, nil, p)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		// 10005 * 10% rounds half-up to 1001
		if c.Amount != 1_001 {
			t.Errorf("expected commission 1001, got %d", c.Amount)
		}
		if c.OrganizerAmount != 9_004 {
			t.Errorf("expected organizer share 9004, got %d", c.OrganizerAmount)
		}
		if c.Amount+c.OrganizerAmount != p.Amount {
			t.Errorf("split %d+%d does not sum to base %d", c.Amount, c.OrganizerAmount, p.Amount)
		}
		if c.OrganizerID != ev.OrganizerID {
			t.Errorf("expected organizer %s, got %s", ev.OrganizerID, c.OrganizerID)
		}
		if c.Status != model.CommissionStatusComputed {
			t.Errorf("expected CALCULEE, got %s", c.Status)
		}
	})

	t.Run("computes once per payment", func(t *testing.T) {
		e := newUCEnv()
		_, tk, _ := e.seedTicketSale(ctx)
		p := &model.Payment{
			ID:       "55555555-5555-5555-5555-555555555555",
			Purpose:  model.PurposeTicket,
			TargetID: tk.ID,
			Amount:   10_000,
			Status:   model.PaymentStatusSucceeded,
		}
		first, err := e.commissionUC.Compute(ctx, nil, p)
		if err != nil {
			t.Fatalf("first compute failed: %v", err)
		}
		second, err := e.commissionUC.Compute(ctx, nil, p)
		if err != nil {
			t.Fatalf("second compute failed: %v", err)
		}
		if first.ID != second.ID {
			t.Error("expected the existing commission back, not a new one")
		}
		if len(e.commissions.store) != 1 {
			t.Errorf("expected one commission, got %d", len(e.commissions.store))
		}
	})

	t.Run("refuses anything but a succeeded ticket payment", func(t *testing.T) {
		e := newUCEnv()
		_, tk, _ := e.seedTicketSale(ctx)
		pending := &model.Payment{ID: "p1", Purpose: model.PurposeTicket, TargetID: tk.ID, Amount: 10_000, Status: model.PaymentStatusPending}
		if _, err := e.commissionUC.Compute(ctx, nil, pending); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("pending payment: expected ErrInvalidArgument, got %v", err)
		}
		sub := &model.Payment{ID: "p2", Purpose: model.PurposeSubscription, TargetID: "sub-1", Amount: 10_000, Status: model.PaymentStatusSucceeded}
		if _, err := e.commissionUC.Compute(ctx, nil, sub); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("subscription payment: expected ErrInvalidArgument, got %v", err)
		}
	})
}
