package usecase

import (
	"context"
	"errors"
	"testing"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
)

func TestTicketUC_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("burns a paid ticket exactly once", func(t *testing.T) {
		e := newUCEnv()
		tk, _ := settleTicketSale(t, ctx, e)
		payload := "SPOTVIBE-" + tk.ID + "-" + tk.EventID

		out, err := e.ticketUC.Validate(ctx, payload, "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if out.Status != model.TicketStatusUsed {
			t.Errorf("expected USED, got %s", out.Status)
		}
		if out.UsedAt == nil {
			t.Error("expected used_at to be set")
		}

		if _, err := e.ticketUC.Validate(ctx, payload, "agent-2"); !errors.Is(err, domain.ErrTicketAlreadyUsed) {
			t.Errorf("second scan: expected ErrTicketAlreadyUsed, got %v", err)
		}
	})

	t.Run("refuses an unpaid ticket", func(t *testing.T) {
		e := newUCEnv()
		_, tk, _ := e.seedTicketSale(ctx)
		payload := "SPOTVIBE-" + tk.ID + "-" + tk.EventID
		if _, err := e.ticketUC.Validate(ctx, payload, "agent-1"); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("refuses a malformed payload", func(t *testing.T) {
		e := newUCEnv()
		if _, err := e.ticketUC.Validate(ctx, "not-a-ticket", "agent-1"); !errors.Is(err, domain.ErrInvalidQRPayload) {
			t.Errorf("expected ErrInvalidQRPayload, got %v", err)
		}
	})
}

func TestSubscriptionUC_Maintenance(t *testing.T) {
	ctx := context.Background()
	log := newTestLogger()

	t.Run("expires subscriptions past their end date", func(t *testing.T) {
		subs := newMemSubscriptionRepo()
		past := timeAgo(24)
		future := timeAhead(24)
		_ = subs.Save(ctx, nil, &model.Subscription{ID: "sub-old", UserID: "u1", Status: model.SubscriptionStatusActive, EndAt: &past})
		_ = subs.Save(ctx, nil, &model.Subscription{ID: "sub-live", UserID: "u2", Status: model.SubscriptionStatusActive, EndAt: &future})
		uc := NewSubscriptionUseCase(subs, log)

		n, err := uc.FinishExpired(ctx)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 expiry, got %d", n)
		}
		old, _ := subs.FindByID(ctx, nil, "sub-old")
		if old.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected EXPIRE, got %s", old.Status)
		}
		live, _ := subs.FindByID(ctx, nil, "sub-live")
		if live.Status != model.SubscriptionStatusActive {
			t.Errorf("expected ACTIF, got %s", live.Status)
		}
	})

	t.Run("zeroes monthly usage counters", func(t *testing.T) {
		subs := newMemSubscriptionRepo()
		future := timeAhead(24)
		_ = subs.Save(ctx, nil, &model.Subscription{ID: "sub-1", UserID: "u1", Status: model.SubscriptionStatusActive, EndAt: &future, MonthlyEventCount: 7})
		uc := NewSubscriptionUseCase(subs, log)

		n, err := uc.ResetMonthlyUsage(ctx)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 reset, got %d", n)
		}
		s, _ := subs.FindByID(ctx, nil, "sub-1")
		if s.MonthlyEventCount != 0 {
			t.Errorf("expected counter 0, got %d", s.MonthlyEventCount)
		}
	})
}
