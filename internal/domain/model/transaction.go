package model

import "time"

type Operator string

const (
	OperatorMTN  Operator = "MTN"
	OperatorMoov Operator = "MOOV"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// MomoTransaction is the Mobile Money operator's view of a Payment,
// one-to-one with it. Created when the payment enters PROCESSING; mutated
// only by callback ingestion or the reconciliation poll.
type MomoTransaction struct {
	ID              string
	PaymentID       string
	Operator        Operator
	Phone           string
	ExternalID      string // operator transaction id, unique once assigned
	Status          TransactionStatus
	ErrorCode       string
	ErrorMsg        string
	InitiatedAt     time.Time
	ConfirmedAt     *time.Time
	WebhookReceived bool
	// last raw callback body, kept for audit/reconciliation
	WebhookData map[string]interface{}
}

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// OperatorFor maps a ledger payment method to its Mobile Money rail.
func OperatorFor(m PaymentMethod) Operator {
	if m == MethodMoovMoney {
		return OperatorMoov
	}
	return OperatorMTN
}
