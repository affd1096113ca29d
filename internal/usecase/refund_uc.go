package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/domain/ports/repository"
	"spotvibe-backend/internal/infra/metrics"
)

var _ RefundUseCase = (*refundUC)(nil)

// RefundUseCase drives a reversal request through
// DEMANDE -> EN_COURS -> {APPROUVE -> REMBOURSE | REJETE}.
type RefundUseCase interface {
	Request(ctx context.Context, paymentID, requesterID string, amount int64, reason model.RefundReason, description string) (*model.Refund, error)
	// Approve moves EN_COURS -> APPROUVE and issues the operator reversal.
	Approve(ctx context.Context, refundID, processorID string) (*model.Refund, error)
	// Complete moves APPROUVE -> REMBOURSE and, in the same transaction,
	// the original payment to REFUNDED and a ticket purchase to REFUNDED.
	Complete(ctx context.Context, refundID, confirmation string) (*model.Refund, error)
	Reject(ctx context.Context, refundID, processorID, comment string) (*model.Refund, error)
	// Open moves DEMANDE -> EN_COURS when an admin picks the request up.
	Open(ctx context.Context, refundID, processorID string) (*model.Refund, error)
	Get(ctx context.Context, refundID string) (*model.Refund, error)
}

type refundUC struct {
	refunds      repository.RefundRepository
	payments     repository.PaymentRepository
	tickets      repository.TicketRepository
	transactions repository.TransactionRepository
	audit        repository.AuditRepository
	gateways     map[model.Operator]adapter.MomoGateway
	tm           repository.TransactionManager
	notifier     adapter.Notifier
	log          *zerolog.Logger
}

func NewRefundUseCase(
	refunds repository.RefundRepository,
	payments repository.PaymentRepository,
	tickets repository.TicketRepository,
	transactions repository.TransactionRepository,
	audit repository.AuditRepository,
	gateways map[model.Operator]adapter.MomoGateway,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *refundUC {
	l := logger.With().Str("component", "RefundUC").Logger()
	return &refundUC{
		refunds:      refunds,
		payments:     payments,
		tickets:      tickets,
		transactions: transactions,
		audit:        audit,
		gateways:     gateways,
		tm:           tm,
		notifier:     notifier,
		log:          &l,
	}
}

func (u *refundUC) Request(ctx context.Context, paymentID, requesterID string, amount int64, reason model.RefundReason, description string) (*model.Refund, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var out *model.Refund
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !p.Refundable() {
			return domain.ErrPaymentNotRefundable
		}
		if amount > p.NetAmount {
			return domain.ErrAmountExceedsOriginal
		}
		if p.Purpose == model.PurposeTicket {
			t, err := u.tickets.FindByID(ctx, tx, p.TargetID)
			if err != nil {
				return domain.ErrFulfillmentInconsistency
			}
			// a burned ticket cannot come back; refusal here is the
			// documented resolution of the underspecified used-ticket case
			if t.Status == model.TicketStatusUsed {
				return domain.ErrTicketAlreadyUsed
			}
		}
		if _, err := u.refunds.FindActiveByPaymentID(ctx, tx, paymentID); err == nil {
			return domain.ErrDuplicateRefundRequest
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		r := &model.Refund{
			ID:          uuid.NewString(),
			PaymentID:   paymentID,
			RequesterID: requesterID,
			Amount:      amount,
			Reason:      reason,
			Description: description,
			Status:      model.RefundStatusRequested,
			RequestedAt: time.Now(),
		}
		if err := u.refunds.Save(ctx, tx, r); err != nil {
			return err
		}
		u.appendAudit(ctx, tx, r, "", requesterID, "refund requested")
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRefund(string(out.Status))
	u.notify(ctx, out)
	return out, nil
}

func (u *refundUC) Open(ctx context.Context, refundID, processorID string) (*model.Refund, error) {
	return u.transition(ctx, refundID, model.RefundStatusRequested, model.RefundStatusInProgress, processorID, "", "taken up for processing")
}

func (u *refundUC) Approve(ctx context.Context, refundID, processorID string) (*model.Refund, error) {
	r, err := u.transition(ctx, refundID, model.RefundStatusInProgress, model.RefundStatusApproved, processorID, "", "approved")
	if err != nil {
		return nil, err
	}

	// External reversal call happens after the approval commits; the
	// outcome arrives through Complete. A failed call leaves the refund
	// APPROUVE and retryable by the operator team.
	t, err := u.transactions.FindByPaymentID(ctx, nil, r.PaymentID)
	if err != nil {
		u.log.Error().Err(err).Str("refund_id", r.ID).Msg("no operator transaction for refund reversal")
		return r, nil
	}
	gw, ok := u.gateways[t.Operator]
	if !ok {
		return r, nil
	}
	ref, err := gw.RequestRefund(ctx, t.ExternalID, r.Amount, string(r.Reason))
	if err != nil {
		u.log.Warn().Err(err).Str("refund_id", r.ID).Msg("operator reversal request failed, will retry")
		return r, nil
	}
	r.OperatorRef = ref
	_ = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := u.refunds.UpdateStatusIf(ctx, tx, r.ID, model.RefundStatusApproved, model.RefundStatusApproved, processorID, ref, "", time.Now())
		return err
	})
	return r, nil
}

func (u *refundUC) Complete(ctx context.Context, refundID, confirmation string) (*model.Refund, error) {
	var out *model.Refund
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.refunds.FindByID(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if r.Status != model.RefundStatusApproved {
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		ok, err := u.refunds.UpdateStatusIf(ctx, tx, r.ID, model.RefundStatusApproved, model.RefundStatusRefunded, r.ProcessorID, confirmation, "", now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		r.Status = model.RefundStatusRefunded
		r.OperatorRef = confirmation
		r.CompletedAt = &now

		p, err := u.payments.FindByID(ctx, tx, r.PaymentID)
		if err != nil {
			return err
		}
		ok, err = u.payments.UpdateStatusIf(ctx, tx, p.ID,
			[]model.PaymentStatus{model.PaymentStatusSucceeded},
			model.PaymentStatusRefunded, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		if p.Purpose == model.PurposeTicket {
			ok, err := u.tickets.UpdateStatusIf(ctx, tx, p.TargetID, model.TicketStatusPaid, model.TicketStatusRefunded, "", nil)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrFulfillmentInconsistency
			}
		}
		u.appendAudit(ctx, tx, r, string(model.RefundStatusApproved), "system", "operator reversal confirmed")
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRefund(string(out.Status))
	u.notify(ctx, out)
	return out, nil
}

func (u *refundUC) Reject(ctx context.Context, refundID, processorID, comment string) (*model.Refund, error) {
	var out *model.Refund
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.refunds.FindByID(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if r.Status != model.RefundStatusRequested && r.Status != model.RefundStatusInProgress {
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		ok, err := u.refunds.UpdateStatusIf(ctx, tx, r.ID, r.Status, model.RefundStatusRejected, processorID, "", comment, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		old := r.Status
		r.Status = model.RefundStatusRejected
		r.ProcessorID = processorID
		r.AdminComment = comment
		r.ProcessedAt = &now
		u.appendAudit(ctx, tx, r, string(old), processorID, "rejected: "+comment)
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRefund(string(out.Status))
	u.notify(ctx, out)
	return out, nil
}

func (u *refundUC) Get(ctx context.Context, refundID string) (*model.Refund, error) {
	return u.refunds.FindByID(ctx, nil, refundID)
}

func (u *refundUC) transition(ctx context.Context, refundID string, from, to model.RefundStatus, processorID, operatorRef, detail string) (*model.Refund, error) {
	var out *model.Refund
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.refunds.FindByID(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if r.Status != from {
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		ok, err := u.refunds.UpdateStatusIf(ctx, tx, r.ID, from, to, processorID, operatorRef, "", now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		r.Status = to
		r.ProcessorID = processorID
		r.ProcessedAt = &now
		u.appendAudit(ctx, tx, r, string(from), processorID, detail)
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRefund(string(out.Status))
	u.notify(ctx, out)
	return out, nil
}

func (u *refundUC) notify(ctx context.Context, r *model.Refund) {
	if u.notifier != nil {
		u.notifier.RefundStatusChanged(ctx, r)
	}
}

func (u *refundUC) appendAudit(ctx context.Context, tx repository.Tx, r *model.Refund, old, actor, detail string) {
	e := model.NewAuditEntry(model.EntityRef{Kind: model.KindRefund, ID: r.ID}, old, string(r.Status), actor, detail)
	if err := u.audit.Append(ctx, tx, e); err != nil {
		u.log.Error().Err(err).Str("refund_id", r.ID).Msg("audit append failed")
	}
}
