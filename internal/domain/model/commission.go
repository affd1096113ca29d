package model

import "time"

type CommissionStatus string

const (
	CommissionStatusComputed CommissionStatus = "CALCULEE"
	CommissionStatusPaidOut  CommissionStatus = "VERSEE"
	CommissionStatusPending  CommissionStatus = "EN_ATTENTE"
)

// Commission is the platform's cut of a ticket sale, derived exactly once
// per successful payment (payment_id is the idempotency key).
type Commission struct {
	ID              string
	PaymentID       string
	EventID         string
	OrganizerID     string
	BaseAmount      int64
	RateBp          int64 // basis points, e.g. 500 = 5%
	Amount          int64
	OrganizerAmount int64 // BaseAmount - Amount, no rounding leakage
	Status          CommissionStatus
	ComputedAt      time.Time
	PaidAt          *time.Time
}

// CommissionAmount rounds half-up to the whole franc. The organizer share
// is the exact remainder, so the two always sum to base.
func CommissionAmount(base, rateBp int64) int64 {
	return (base*rateBp + 5_000) / 10_000
}
