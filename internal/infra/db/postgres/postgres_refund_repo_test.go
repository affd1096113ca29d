//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"

	"github.com/google/uuid"
)

func TestRefundRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewRefundRepo(testPool)
	paymentRepo := NewPaymentRepo(testPool)

	setup := func(t *testing.T) *model.Payment {
		cleanup(t)
		p := newTestPayment(t)
		if err := paymentRepo.Save(ctx, nil, p); err != nil {
			t.Fatalf("save payment: %v", err)
		}
		return p
	}

	newRefund := func(paymentID string) *model.Refund {
		return &model.Refund{
			ID:          uuid.NewString(),
			PaymentID:   paymentID,
			RequesterID: uuid.NewString(),
			Amount:      5_000,
			Reason:      model.RefundReasonCustomer,
			Status:      model.RefundStatusRequested,
			RequestedAt: time.Now(),
		}
	}

	t.Run("should save and find the active refund", func(t *testing.T) {
		p := setup(t)
		f := newRefund(p.ID)

		if err := repo.Save(ctx, nil, f); err != nil {
			t.Fatalf("save refund: %v", err)
		}

		got, err := repo.FindActiveByPaymentID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("FindActiveByPaymentID: %v", err)
		}
		if got.ID != f.ID || got.Status != model.RefundStatusRequested {
			t.Fatalf("unexpected refund: %+v", got)
		}
	})

	t.Run("second active refund for the same payment is rejected by the index", func(t *testing.T) {
		p := setup(t)
		if err := repo.Save(ctx, nil, newRefund(p.ID)); err != nil {
			t.Fatalf("first save: %v", err)
		}
		if err := repo.Save(ctx, nil, newRefund(p.ID)); err == nil {
			t.Fatal("expected the partial unique index to reject a second live refund")
		}
	})

	t.Run("rejected refund frees the payment for a new request", func(t *testing.T) {
		p := setup(t)
		first := newRefund(p.ID)
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("first save: %v", err)
		}
		moved, err := repo.UpdateStatusIf(ctx, nil, first.ID, model.RefundStatusRequested, model.RefundStatusRejected, "admin-1", "", "not eligible", time.Now())
		if err != nil || !moved {
			t.Fatalf("reject: moved=%v err=%v", moved, err)
		}

		if _, err := repo.FindActiveByPaymentID(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected no active refund, got %v", err)
		}
		if err := repo.Save(ctx, nil, newRefund(p.ID)); err != nil {
			t.Fatalf("new request after rejection should insert: %v", err)
		}
	})

	t.Run("UpdateStatusIf guards the from-status and stamps completion", func(t *testing.T) {
		p := setup(t)
		f := newRefund(p.ID)
		if err := repo.Save(ctx, nil, f); err != nil {
			t.Fatalf("save: %v", err)
		}

		// Not yet APPROUVE, so this CAS must not move.
		moved, err := repo.UpdateStatusIf(ctx, nil, f.ID, model.RefundStatusApproved, model.RefundStatusRefunded, "", "", "", time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if moved {
			t.Fatal("CAS from APPROUVE must not move a DEMANDE row")
		}

		steps := []struct{ from, to model.RefundStatus }{
			{model.RefundStatusRequested, model.RefundStatusInProgress},
			{model.RefundStatusInProgress, model.RefundStatusApproved},
			{model.RefundStatusApproved, model.RefundStatusRefunded},
		}
		for _, s := range steps {
			moved, err := repo.UpdateStatusIf(ctx, nil, f.ID, s.from, s.to, "admin-1", "rev-99", "", time.Now())
			if err != nil || !moved {
				t.Fatalf("%s -> %s: moved=%v err=%v", s.from, s.to, moved, err)
			}
		}

		got, err := repo.FindByID(ctx, nil, f.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != model.RefundStatusRefunded || got.CompletedAt == nil || got.OperatorRef != "rev-99" {
			t.Fatalf("unexpected refund after completion: %+v", got)
		}
	})
}
