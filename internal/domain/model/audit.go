package model

import (
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	KindPayment      EntityKind = "PAYMENT"
	KindTransaction  EntityKind = "TRANSACTION"
	KindTicket       EntityKind = "TICKET"
	KindSubscription EntityKind = "SUBSCRIPTION"
	KindRefund       EntityKind = "REFUND"
)

// EntityRef is a tagged reference to the entity a log entry concerns.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// AuditEntry records one state transition. Entries are append-only and
// written in the same transaction as the transition they describe.
type AuditEntry struct {
	ID        string
	Entity    EntityRef
	OldStatus string
	NewStatus string
	Actor     string // user id, operator name, or "system"
	Detail    string
	At        time.Time
}

func NewAuditEntry(ref EntityRef, oldStatus, newStatus, actor, detail string) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.NewString(),
		Entity:    ref,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Actor:     actor,
		Detail:    detail,
		At:        time.Now(),
	}
}
