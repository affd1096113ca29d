package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIF"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRE"
	SubscriptionStatusCancelled SubscriptionStatus = "ANNULE"
	SubscriptionStatusPending   SubscriptionStatus = "EN_ATTENTE"
)

// SubscriptionPlan describes a purchasable plan. ReducedCommission marks
// plans whose holders get the reduced ticketing commission rate on their
// event sales.
type SubscriptionPlan struct {
	ID                string
	Name              string
	Price             int64
	DurationDays      int
	ReducedCommission bool
	MonthlyEventQuota int
	CreatedAt         time.Time
}

// Subscription is a plan grant for one user. Activation happens only
// through fulfillment of a SUCCEEDED payment; the monthly usage counter
// resets on a schedule independent of payment events.
type Subscription struct {
	ID                string
	UserID            string
	PlanID            string
	StartAt           *time.Time
	EndAt             *time.Time
	Status            SubscriptionStatus
	AmountPaid        int64
	AutoRenew         bool
	MonthlyEventCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s *Subscription) Active(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		s.EndAt != nil && s.EndAt.After(now)
}

// Activate sets the grant window from the plan duration. Idempotent
// activation is enforced by the caller (fulfillment), not here.
func (s *Subscription) Activate(plan *SubscriptionPlan, paid int64, now time.Time) {
	end := now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)
	s.StartAt = &now
	s.EndAt = &end
	s.Status = SubscriptionStatusActive
	s.AmountPaid = paid
	s.UpdatedAt = now
}
