package model

import "time"

type RefundStatus string

const (
	RefundStatusRequested  RefundStatus = "DEMANDE"
	RefundStatusInProgress RefundStatus = "EN_COURS"
	RefundStatusApproved   RefundStatus = "APPROUVE"
	RefundStatusRejected   RefundStatus = "REJETE"
	RefundStatusRefunded   RefundStatus = "REMBOURSE"
)

type RefundReason string

const (
	RefundReasonEventCancelled RefundReason = "ANNULATION_EVENT"
	RefundReasonCustomer       RefundReason = "DEMANDE_CLIENT"
	RefundReasonPaymentError   RefundReason = "ERREUR_PAIEMENT"
	RefundReasonFraud          RefundReason = "FRAUDE"
	RefundReasonOther          RefundReason = "AUTRE"
)

// Refund is a reversal request against a SUCCEEDED payment. A payment has
// at most one active (non-rejected) refund at a time.
type Refund struct {
	ID           string
	PaymentID    string
	RequesterID  string
	Amount       int64
	Reason       RefundReason
	Description  string
	Status       RefundStatus
	RequestedAt  time.Time
	ProcessedAt  *time.Time
	CompletedAt  *time.Time
	ProcessorID  string // admin who handled the request
	OperatorRef  string // operator reversal reference
	AdminComment string
}

func (s RefundStatus) Terminal() bool {
	return s == RefundStatusRejected || s == RefundStatusRefunded
}

// Active refunds block new refund requests for the same payment.
func (s RefundStatus) ActiveRequest() bool {
	return s == RefundStatusRequested || s == RefundStatusInProgress || s == RefundStatusApproved
}

func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	switch s {
	case RefundStatusRequested:
		return next == RefundStatusInProgress || next == RefundStatusRejected
	case RefundStatusInProgress:
		return next == RefundStatusApproved || next == RefundStatusRejected
	case RefundStatusApproved:
		return next == RefundStatusRefunded
	}
	return false
}
