package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment ledger errors
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrPaymentExpired    = errors.New("payment has expired")

	// Callback ingestion errors
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrUnknownTransaction = errors.New("unknown operator transaction")
	ErrCallbackInFlight   = errors.New("another callback for this transaction is being processed")

	// Fulfillment errors. Never auto-retried: retrying risks double-granting
	// a ticket or subscription, so these surface to operators as-is.
	ErrFulfillmentInconsistency = errors.New("fulfillment target missing or in conflicting state")

	// Refund workflow errors
	ErrPaymentNotRefundable   = errors.New("payment is not refundable")
	ErrAmountExceedsOriginal  = errors.New("refund amount exceeds original net amount")
	ErrDuplicateRefundRequest = errors.New("payment already has an active refund request")
	ErrTicketAlreadyUsed      = errors.New("ticket has already been used")

	// Ticket validation errors
	ErrInvalidQRPayload = errors.New("invalid ticket QR payload")
)
