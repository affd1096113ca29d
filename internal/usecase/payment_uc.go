package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/domain/ports/repository"
	"spotvibe-backend/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase is the payment ledger: the source of truth for money
// movement. All transitions are mutually exclusive per payment (row lock)
// and append-only audited.
type PaymentUseCase interface {
	// Create returns a PENDING payment for the given purchase intent.
	Create(ctx context.Context, payerID string, purpose model.PaymentPurpose, targetID string, amount int64, method model.PaymentMethod, phone string) (*model.Payment, error)
	// MarkSucceeded finalizes a PROCESSING payment: fulfillment and (for
	// ticket sales) commission run in the same transaction. Calling it again
	// for an already SUCCEEDED payment is a no-op returning the existing
	// record; this guards against duplicate webhook delivery.
	MarkSucceeded(ctx context.Context, paymentID, externalRef string) (*model.Payment, error)
	MarkFailed(ctx context.Context, paymentID, reason string) (*model.Payment, error)
	// Cancel is allowed only while PENDING, before an operator charge exists.
	Cancel(ctx context.Context, paymentID, actor string) (*model.Payment, error)
	// Retry creates a new payment superseding a FAILED one. The old row is
	// kept untouched for audit.
	Retry(ctx context.Context, paymentID string) (*model.Payment, error)
	// Expire applies the timeout fallback when no callback arrived within
	// the expiration window.
	Expire(ctx context.Context, paymentID string) (*model.Payment, error)

	Get(ctx context.Context, paymentID string) (*model.Payment, error)
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)

	// Tx-scoped variants used by callback ingestion so the operator
	// transaction and the payment transition commit atomically.
	MarkSucceededTx(ctx context.Context, tx repository.Tx, paymentID, externalRef string) (*model.Payment, error)
	MarkFailedTx(ctx context.Context, tx repository.Tx, paymentID, reason string) (*model.Payment, error)
}

type paymentUC struct {
	payments     repository.PaymentRepository
	transactions repository.TransactionRepository
	audit        repository.AuditRepository
	fulfillment  FulfillmentUseCase
	commissions  CommissionUseCase
	tm           repository.TransactionManager
	notifier     adapter.Notifier
	cfg          config.PaymentConfig
	log          *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	transactions repository.TransactionRepository,
	audit repository.AuditRepository,
	fulfillment FulfillmentUseCase,
	commissions CommissionUseCase,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	cfg config.PaymentConfig,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments:     payments,
		transactions: transactions,
		audit:        audit,
		fulfillment:  fulfillment,
		commissions:  commissions,
		tm:           tm,
		notifier:     notifier,
		cfg:          cfg,
		log:          &l,
	}
}

func (u *paymentUC) Create(ctx context.Context, payerID string, purpose model.PaymentPurpose, targetID string, amount int64, method model.PaymentMethod, phone string) (*model.Payment, error) {
	op, ok := u.cfg.Operators[string(model.OperatorFor(method))]
	if !ok {
		return nil, domain.ErrUnsupportedMethod
	}
	fee := (amount*op.FeeBp + 5_000) / 10_000
	p, err := model.NewPayment(payerID, purpose, targetID, amount, fee, method, phone, u.cfg.Expiry)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	u.appendAudit(ctx, nil, p, "", payerID, "payment created")
	metrics.IncPayment(string(p.Status))
	u.log.Info().Str("payment_id", p.ID).Str("purpose", string(purpose)).Int64("amount", amount).Msg("payment created")
	return p, nil
}

func (u *paymentUC) MarkSucceeded(ctx context.Context, paymentID, externalRef string) (*model.Payment, error) {
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.MarkSucceededTx(ctx, tx, paymentID, externalRef)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.afterTransition(ctx, out, model.PaymentStatusProcessing)
	return out, nil
}

// MarkSucceededTx runs PROCESSING -> SUCCEEDED inside the caller's
// transaction: row lock, CAS, fulfillment, commission, audit. The caller
// is responsible for post-commit side effects (metrics, notification).
func (u *paymentUC) MarkSucceededTx(ctx context.Context, tx repository.Tx, paymentID, externalRef string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusSucceeded {
		// duplicate delivery: exactly-once fulfillment already happened
		u.log.Debug().Str("payment_id", paymentID).Msg("mark_succeeded on already succeeded payment, no-op")
		return p, nil
	}
	if p.Status != model.PaymentStatusProcessing {
		return nil, domain.ErrInvalidTransition
	}
	now := time.Now()
	ok, err := u.payments.UpdateStatusIf(ctx, tx, p.ID,
		[]model.PaymentStatus{model.PaymentStatusProcessing},
		model.PaymentStatusSucceeded, &externalRef, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	p.Status = model.PaymentStatusSucceeded
	p.ExternalRef = externalRef
	p.CompletedAt = &now
	p.UpdatedAt = now

	if _, err := u.fulfillment.Fulfill(ctx, tx, p); err != nil {
		return nil, err
	}
	if p.Purpose == model.PurposeTicket {
		if _, err := u.commissions.Compute(ctx, tx, p); err != nil {
			return nil, err
		}
	}
	u.appendAudit(ctx, tx, p, string(model.PaymentStatusProcessing), string(model.OperatorFor(p.Method)), "operator confirmed")
	return p, nil
}

func (u *paymentUC) MarkFailed(ctx context.Context, paymentID, reason string) (*model.Payment, error) {
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.MarkFailedTx(ctx, tx, paymentID, reason)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.afterTransition(ctx, out, model.PaymentStatusProcessing)
	return out, nil
}

func (u *paymentUC) MarkFailedTx(ctx context.Context, tx repository.Tx, paymentID, reason string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusFailed {
		return p, nil
	}
	if p.Status != model.PaymentStatusProcessing {
		return nil, domain.ErrInvalidTransition
	}
	now := time.Now()
	ok, err := u.payments.UpdateStatusIf(ctx, tx, p.ID,
		[]model.PaymentStatus{model.PaymentStatusProcessing},
		model.PaymentStatusFailed, nil, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	p.Status = model.PaymentStatusFailed
	p.CompletedAt = &now
	p.UpdatedAt = now
	u.appendAudit(ctx, tx, p, string(model.PaymentStatusProcessing), "operator", reason)
	return p, nil
}

func (u *paymentUC) Cancel(ctx context.Context, paymentID, actor string) (*model.Payment, error) {
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentStatusPending {
			return domain.ErrInvalidTransition
		}
		ok, err := u.payments.UpdateStatusIf(ctx, tx, p.ID,
			[]model.PaymentStatus{model.PaymentStatusPending},
			model.PaymentStatusCancelled, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		p.Status = model.PaymentStatusCancelled
		u.appendAudit(ctx, tx, p, string(model.PaymentStatusPending), actor, "cancelled by payer")
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.afterTransition(ctx, out, model.PaymentStatusPending)
	return out, nil
}

func (u *paymentUC) Retry(ctx context.Context, paymentID string) (*model.Payment, error) {
	var fresh *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		old, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if old.Status != model.PaymentStatusFailed {
			return domain.ErrInvalidTransition
		}
		p, err := model.NewPayment(old.PayerID, old.Purpose, old.TargetID, old.Amount, old.Fee, old.Method, old.Phone, u.cfg.Expiry)
		if err != nil {
			return err
		}
		p.RetryOf = &old.ID
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		u.appendAudit(ctx, tx, p, "", old.PayerID, "retry of "+old.ID)
		fresh = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(fresh.Status))
	u.log.Info().Str("payment_id", fresh.ID).Str("retry_of", paymentID).Msg("payment retried")
	return fresh, nil
}

func (u *paymentUC) Expire(ctx context.Context, paymentID string) (*model.Payment, error) {
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentStatusExpired {
			out = p
			return nil
		}
		if !p.Status.CanTransitionTo(model.PaymentStatusExpired) {
			return domain.ErrInvalidTransition
		}
		from := p.Status
		now := time.Now()
		ok, err := u.payments.UpdateStatusIf(ctx, tx, p.ID,
			[]model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusProcessing},
			model.PaymentStatusExpired, nil, &now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		p.Status = model.PaymentStatusExpired
		p.CompletedAt = &now
		if from == model.PaymentStatusProcessing {
			// a charge was initiated: close its operator transaction so a
			// late callback lands on a terminal row and gets discarded
			// instead of looping on an impossible transition
			t, err := u.transactions.FindByPaymentID(ctx, tx, p.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if t != nil && !t.Status.Terminal() {
				if _, err := u.transactions.UpdateStatusIfPending(ctx, tx, t.ID,
					model.TransactionStatusCancelled, "EXPIRED", "payment expired before callback", nil); err != nil {
					return err
				}
			}
		}
		u.appendAudit(ctx, tx, p, string(from), "system", "expired before operator callback")
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusExpired))
	return out, nil
}

func (u *paymentUC) Get(ctx context.Context, paymentID string) (*model.Payment, error) {
	return u.payments.FindByID(ctx, nil, paymentID)
}

func (u *paymentUC) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	return u.payments.FindByReference(ctx, nil, reference)
}

func (u *paymentUC) afterTransition(ctx context.Context, p *model.Payment, old model.PaymentStatus) {
	if p == nil {
		return
	}
	metrics.IncPayment(string(p.Status))
	if p.Status == model.PaymentStatusSucceeded {
		metrics.AddPaymentRevenue("XOF", p.Amount)
	}
	if u.notifier != nil {
		u.notifier.PaymentStatusChanged(ctx, p, old)
	}
}

// appendAudit never fails the surrounding transition; an unwritable audit
// row is logged and surfaced through monitoring instead.
func (u *paymentUC) appendAudit(ctx context.Context, tx repository.Tx, p *model.Payment, old, actor, detail string) {
	e := model.NewAuditEntry(model.EntityRef{Kind: model.KindPayment, ID: p.ID}, old, string(p.Status), actor, detail)
	if err := u.audit.Append(ctx, tx, e); err != nil && !errors.Is(err, context.Canceled) {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("audit append failed")
	}
}
