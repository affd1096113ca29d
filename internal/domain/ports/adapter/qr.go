package adapter

import "spotvibe-backend/internal/domain/model"

// QRSigner produces and checks tamper-evident ticket QR payloads.
type QRSigner interface {
	Payload(t *model.Ticket) string
	// Verify returns the ticket id embedded in a payload, or
	// domain.ErrInvalidQRPayload.
	Verify(payload string) (ticketID string, err error)
}
