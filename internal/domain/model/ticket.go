package model

import "time"

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusPaid      TicketStatus = "PAID"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusRefunded  TicketStatus = "REFUNDED"
	TicketStatusUsed      TicketStatus = "USED"
)

// Ticket is a purchased admission unit. It becomes PAID only as a
// consequence of its linked payment reaching SUCCEEDED, and USED only
// once, only from PAID.
type Ticket struct {
	ID          string
	EventID     string
	BuyerID     string
	UnitPrice   int64
	Quantity    int
	Status      TicketStatus
	QRPayload   string // set on transition to PAID
	PurchasedAt time.Time
	UsedAt      *time.Time
}

func (t *Ticket) TotalPrice() int64 {
	return t.UnitPrice * int64(t.Quantity)
}

func (t *Ticket) CanBeUsed() bool {
	return t.Status == TicketStatusPaid
}
