package model

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"spotvibe-backend/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"    // created, operator charge not yet initiated
	PaymentStatusProcessing PaymentStatus = "PROCESSING" // operator charge initiated; awaiting callback
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"  // operator confirmed; fulfilled
	PaymentStatusFailed     PaymentStatus = "FAILED"     // operator rejected or charge errored
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"  // payer cancelled before charge initiation
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"   // reversed via the refund workflow
	PaymentStatusExpired    PaymentStatus = "EXPIRED"    // no callback within the expiration window
)

type PaymentPurpose string

const (
	PurposeTicket       PaymentPurpose = "TICKET"
	PurposeSubscription PaymentPurpose = "SUBSCRIPTION"
	PurposeRefund       PaymentPurpose = "REFUND"
)

type PaymentMethod string

const (
	MethodMTNMoney  PaymentMethod = "MTN_MONEY"
	MethodMoovMoney PaymentMethod = "MOOV_MONEY"
)

// Payment records one money-movement attempt. Amounts are whole FCFA.
// A payment row is never deleted or mutated back from a terminal state:
// a retry supersedes a FAILED row with a fresh one carrying RetryOf.
type Payment struct {
	ID        string // UUID, internal
	Reference string // ULID, client-facing opaque token
	PayerID   string
	Purpose   PaymentPurpose
	TargetID  string // ticket or subscription the payment funds
	Amount    int64
	Fee       int64
	NetAmount int64 // always Amount - Fee
	Status    PaymentStatus
	Method    PaymentMethod
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
	// set when the payment reaches a terminal outcome at the operator
	CompletedAt *time.Time
	ExpiresAt   time.Time
	// raw operator response payload (serialized as JSONB)
	ResponseData map[string]interface{}
	ExternalRef  string
	RetryOf      *string
}

// NewPayment validates inputs and returns a PENDING payment. NetAmount is
// derived here and nowhere else.
func NewPayment(payerID string, purpose PaymentPurpose, targetID string, amount, fee int64, method PaymentMethod, phone string, expiry time.Duration) (*Payment, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if fee < 0 || fee > amount {
		return nil, domain.ErrInvalidAmount
	}
	if payerID == "" || targetID == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch method {
	case MethodMTNMoney, MethodMoovMoney:
	default:
		return nil, domain.ErrUnsupportedMethod
	}
	now := time.Now()
	return &Payment{
		ID:        uuid.NewString(),
		Reference: ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		PayerID:   payerID,
		Purpose:   purpose,
		TargetID:  targetID,
		Amount:    amount,
		Fee:       fee,
		NetAmount: amount - fee,
		Status:    PaymentStatusPending,
		Method:    method,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(expiry),
	}, nil
}

// Terminal reports whether no ledger transition may leave this status.
// SUCCEEDED is not terminal for the refund workflow, which alone may move
// it to REFUNDED.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo encodes the ledger state machine. Status never regresses.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusProcessing || next == PaymentStatusCancelled || next == PaymentStatusExpired
	case PaymentStatusProcessing:
		return next == PaymentStatusSucceeded || next == PaymentStatusFailed || next == PaymentStatusExpired
	case PaymentStatusSucceeded:
		return next == PaymentStatusRefunded
	}
	return false
}

func (p *Payment) Refundable() bool {
	return p.Status == PaymentStatusSucceeded &&
		(p.Purpose == PurposeTicket || p.Purpose == PurposeSubscription)
}
