package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
	"spotvibe-backend/internal/domain/ports/repository"
)

var _ TicketUseCase = (*ticketUC)(nil)

type TicketUseCase interface {
	// Validate checks a QR payload at the venue gate and burns the ticket.
	// A ticket is used exactly once, and only from PAID.
	Validate(ctx context.Context, qrPayload, validatorID string) (*model.Ticket, error)
	Get(ctx context.Context, ticketID string) (*model.Ticket, error)
}

type ticketUC struct {
	tickets repository.TicketRepository
	audit   repository.AuditRepository
	qr      adapter.QRSigner
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewTicketUseCase(
	tickets repository.TicketRepository,
	audit repository.AuditRepository,
	qr adapter.QRSigner,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *ticketUC {
	l := logger.With().Str("component", "TicketUC").Logger()
	return &ticketUC{tickets: tickets, audit: audit, qr: qr, tm: tm, log: &l}
}

func (u *ticketUC) Validate(ctx context.Context, qrPayload, validatorID string) (*model.Ticket, error) {
	ticketID, err := u.qr.Verify(qrPayload)
	if err != nil {
		return nil, err
	}
	var out *model.Ticket
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.tickets.FindByID(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if t.Status == model.TicketStatusUsed {
			return domain.ErrTicketAlreadyUsed
		}
		if t.Status != model.TicketStatusPaid {
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		ok, err := u.tickets.UpdateStatusIf(ctx, tx, t.ID, model.TicketStatusPaid, model.TicketStatusUsed, t.QRPayload, &now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTicketAlreadyUsed
		}
		t.Status = model.TicketStatusUsed
		t.UsedAt = &now
		e := model.NewAuditEntry(model.EntityRef{Kind: model.KindTicket, ID: t.ID},
			string(model.TicketStatusPaid), string(model.TicketStatusUsed), validatorID, "validated at gate")
		if err := u.audit.Append(ctx, tx, e); err != nil {
			u.log.Error().Err(err).Str("ticket_id", t.ID).Msg("audit append failed")
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *ticketUC) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	return u.tickets.FindByID(ctx, nil, ticketID)
}
