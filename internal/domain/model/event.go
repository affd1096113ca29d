package model

import "time"

// Event is the minimal read model the payment core needs from the event
// catalog: price, organizer, and the per-event commission override.
type Event struct {
	ID               string
	OrganizerID      string
	Title            string
	TicketPrice      int64
	CommissionRateBp int64 // 0 means "use the platform rate"
	TicketingEnabled bool
	Capacity         int
	StartAt          time.Time
}
