package adapter

import (
	"context"

	"spotvibe-backend/internal/domain/model"
)

// ChargeResult is what an operator returns when a request-to-pay is
// accepted. Instruction is surfaced to the end user (e.g. a USSD prompt).
type ChargeResult struct {
	ExternalID  string
	Instruction string
}

// CallbackEvent is the validated, operator-agnostic form of a webhook
// payload. Decoding and signature verification are pure; the transactional
// apply step happens afterwards, which keeps ordering and idempotency
// testable in isolation.
type CallbackEvent struct {
	ExternalID  string
	Succeeded   bool
	Pending     bool // status polls may find the charge still in flight
	OperatorRef string
	ErrorCode   string
	ErrorMsg    string
	Raw         map[string]interface{}
}

// MomoGateway is the hex port for Mobile Money operators.
type MomoGateway interface {
	Operator() model.Operator

	// RequestToPay initiates the external charge for a payment.
	RequestToPay(ctx context.Context, p *model.Payment) (ChargeResult, error)
	// DecodeCallback verifies the webhook signature and decodes the body.
	// Returns domain.ErrInvalidSignature without touching any state.
	DecodeCallback(body []byte, signature string) (CallbackEvent, error)
	// QueryStatus polls the operator for a transaction's outcome; used by
	// the reconciler when no callback arrived in time.
	QueryStatus(ctx context.Context, externalID string) (CallbackEvent, error)
	// RequestRefund issues a reversal for a confirmed transaction.
	RequestRefund(ctx context.Context, externalID string, amount int64, reason string) (string, error)
}
