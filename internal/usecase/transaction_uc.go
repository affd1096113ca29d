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

// Locker serializes callback processing per external transaction id.
// Satisfied by the redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ TransactionUseCase = (*transactionUC)(nil)

// TransactionUseCase tracks the operator-side transaction tied to a
// payment and ingests webhook callbacks.
type TransactionUseCase interface {
	// Initiate calls the external charge API and moves the payment
	// PENDING -> PROCESSING. On a gateway error the payment stays PENDING
	// and the error is retryable.
	Initiate(ctx context.Context, paymentID string) (*model.MomoTransaction, string, error)
	// IngestCallback is the webhook entry point: verify, look up, apply.
	// Idempotent: a transaction already in a terminal status is returned
	// unchanged. Callbacks for the same external id are serialized; the
	// first terminal outcome wins and later contradictory deliveries are
	// logged and discarded.
	IngestCallback(ctx context.Context, operator model.Operator, body []byte, signature string) (*model.MomoTransaction, error)
	// Reconcile polls the operator for a stuck PROCESSING payment and
	// finalizes it when the operator reports a terminal outcome.
	Reconcile(ctx context.Context, paymentID string) (*model.MomoTransaction, error)
}

const callbackLockTTL = 15 * time.Second

type transactionUC struct {
	transactions repository.TransactionRepository
	payments     repository.PaymentRepository
	ledger       PaymentUseCase
	gateways     map[model.Operator]adapter.MomoGateway
	locker       Locker
	tm           repository.TransactionManager
	notifier     adapter.Notifier
	log          *zerolog.Logger
}

func NewTransactionUseCase(
	transactions repository.TransactionRepository,
	payments repository.PaymentRepository,
	ledger PaymentUseCase,
	gateways map[model.Operator]adapter.MomoGateway,
	locker Locker,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *transactionUC {
	l := logger.With().Str("component", "TransactionUC").Logger()
	return &transactionUC{
		transactions: transactions,
		payments:     payments,
		ledger:       ledger,
		gateways:     gateways,
		locker:       locker,
		tm:           tm,
		notifier:     notifier,
		log:          &l,
	}
}

func (u *transactionUC) Initiate(ctx context.Context, paymentID string) (*model.MomoTransaction, string, error) {
	p, err := u.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, "", err
	}
	if p.Status != model.PaymentStatusPending {
		return nil, "", domain.ErrInvalidTransition
	}
	op := model.OperatorFor(p.Method)
	gw, ok := u.gateways[op]
	if !ok {
		return nil, "", domain.ErrUnsupportedMethod
	}

	// External suspension point. Nothing has been persisted yet, so a
	// failure here leaves the payment PENDING and retryable.
	res, err := gw.RequestToPay(ctx, p)
	if err != nil {
		u.log.Warn().Err(err).Str("payment_id", p.ID).Str("operator", string(op)).Msg("operator charge request failed")
		return nil, "", err
	}

	t := &model.MomoTransaction{
		ID:          uuid.NewString(),
		PaymentID:   p.ID,
		Operator:    op,
		Phone:       p.Phone,
		ExternalID:  res.ExternalID,
		Status:      model.TransactionStatusPending,
		InitiatedAt: time.Now(),
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.UpdateStatusIf(ctx, tx, p.ID,
			[]model.PaymentStatus{model.PaymentStatusPending},
			model.PaymentStatusProcessing, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		return u.transactions.Save(ctx, tx, t)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// the payment was closed between the charge request and the
			// commit. The operator charge is live, so record it as a
			// CANCELLED transaction: its callbacks then land on a terminal
			// row and get discarded instead of answering 404 forever.
			t.Status = model.TransactionStatusCancelled
			t.ErrorCode = "PAYMENT_CLOSED"
			t.ErrorMsg = "payment left PENDING before the charge was recorded"
			if saveErr := u.transactions.Save(ctx, nil, t); saveErr != nil {
				u.log.Error().Err(saveErr).Str("payment_id", p.ID).Str("external_id", t.ExternalID).Msg("orphaned operator charge could not be recorded")
			}
		}
		return nil, "", err
	}
	metrics.IncPayment(string(model.PaymentStatusProcessing))
	u.log.Info().Str("payment_id", p.ID).Str("external_id", t.ExternalID).Str("operator", string(op)).Msg("operator charge initiated")
	return t, res.Instruction, nil
}

func (u *transactionUC) IngestCallback(ctx context.Context, operator model.Operator, body []byte, signature string) (*model.MomoTransaction, error) {
	gw, ok := u.gateways[operator]
	if !ok {
		return nil, domain.ErrUnsupportedMethod
	}
	// Pure step: decode + verify, no state touched. A bad signature is a
	// potential security event.
	ev, err := gw.DecodeCallback(body, signature)
	if err != nil {
		metrics.IncWebhook(string(operator), "invalid_signature")
		u.log.Warn().Str("operator", string(operator)).Msg("webhook signature rejected")
		return nil, err
	}

	token, err := u.locker.TryLock(ctx, "momo:cb:"+ev.ExternalID, callbackLockTTL)
	if err != nil {
		metrics.IncWebhook(string(operator), "lock_contention")
		return nil, domain.ErrCallbackInFlight
	}
	defer func() { _ = u.locker.Unlock(ctx, "momo:cb:"+ev.ExternalID, token) }()

	return u.apply(ctx, operator, ev)
}

// apply runs the transactional step: operator transaction CAS plus the
// ledger transition commit together, so partial fulfillment is never
// observable.
func (u *transactionUC) apply(ctx context.Context, operator model.Operator, ev adapter.CallbackEvent) (*model.MomoTransaction, error) {
	var out *model.MomoTransaction
	var settled *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.transactions.FindByExternalID(ctx, tx, ev.ExternalID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUnknownTransaction
			}
			return err
		}
		if t.Status.Terminal() {
			// first terminal outcome won already; discard this delivery
			u.log.Info().Str("external_id", ev.ExternalID).Str("status", string(t.Status)).
				Bool("callback_succeeded", ev.Succeeded).Msg("duplicate or contradictory callback discarded")
			metrics.IncWebhook(string(operator), "duplicate")
			out = t
			return nil
		}

		next := model.TransactionStatusConfirmed
		if !ev.Succeeded {
			next = model.TransactionStatusFailed
		}
		won, err := u.transactions.UpdateStatusIfPending(ctx, tx, t.ID, next, ev.ErrorCode, ev.ErrorMsg, ev.Raw)
		if err != nil {
			return err
		}
		if !won {
			out = t
			return nil
		}
		t.Status = next
		now := time.Now()
		t.ConfirmedAt = &now
		t.WebhookReceived = true
		t.WebhookData = ev.Raw

		if ev.Succeeded {
			p, err := u.ledger.MarkSucceededTx(ctx, tx, t.PaymentID, ev.OperatorRef)
			if err != nil {
				return err
			}
			settled = p
		} else {
			p, err := u.ledger.MarkFailedTx(ctx, tx, t.PaymentID, ev.ErrorMsg)
			if err != nil {
				return err
			}
			settled = p
		}
		out = t
		return nil
	})
	if err != nil {
		metrics.IncWebhook(string(operator), "error")
		return nil, err
	}
	metrics.IncWebhook(string(operator), "applied")
	// post-commit ledger side effects, mirroring MarkSucceeded/MarkFailed
	if settled != nil {
		metrics.IncPayment(string(settled.Status))
		if settled.Status == model.PaymentStatusSucceeded {
			metrics.AddPaymentRevenue("XOF", settled.Amount)
		}
		if u.notifier != nil {
			u.notifier.PaymentStatusChanged(ctx, settled, model.PaymentStatusProcessing)
		}
	}
	return out, nil
}

func (u *transactionUC) Reconcile(ctx context.Context, paymentID string) (*model.MomoTransaction, error) {
	t, err := u.transactions.FindByPaymentID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return t, nil
	}
	gw, ok := u.gateways[t.Operator]
	if !ok {
		return nil, domain.ErrUnsupportedMethod
	}
	ev, err := gw.QueryStatus(ctx, t.ExternalID)
	if err != nil {
		return nil, err
	}
	if ev.Pending {
		return t, nil
	}
	return u.apply(ctx, t.Operator, ev)
}
