package adapter

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

// Notifier dispatches fire-and-forget status-change events. Delivery
// mechanics (email/SMS/push) live outside the payment core.
type Notifier interface {
	PaymentStatusChanged(ctx context.Context, p *model.Payment, old model.PaymentStatus)
	RefundStatusChanged(ctx context.Context, r *model.Refund)
}
