package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
)

const signatureHeader = "X-Signature"

type paymentResponse struct {
	Reference   string     `json:"reference"`
	Status      string     `json:"status"`
	Purpose     string     `json:"purpose"`
	Amount      int64      `json:"amount"`
	Fee         int64      `json:"fee"`
	NetAmount   int64      `json:"net_amount"`
	Method      string     `json:"method"`
	Instruction string     `json:"instruction,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toPaymentResponse(p *model.Payment, instruction string) paymentResponse {
	return paymentResponse{
		Reference:   p.Reference,
		Status:      string(p.Status),
		Purpose:     string(p.Purpose),
		Amount:      p.Amount,
		Fee:         p.Fee,
		NetAmount:   p.NetAmount,
		Method:      string(p.Method),
		Instruction: instruction,
		CreatedAt:   p.CreatedAt,
		ExpiresAt:   p.ExpiresAt,
		CompletedAt: p.CompletedAt,
	}
}

type refundResponse struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"payment_id"`
	Amount      int64      `json:"amount"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toRefundResponse(r *model.Refund) refundResponse {
	return refundResponse{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		Amount:      r.Amount,
		Reason:      string(r.Reason),
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt,
		CompletedAt: r.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownTransaction):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedMethod),
		errors.Is(err, domain.ErrInvalidQRPayload):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentExpired),
		errors.Is(err, domain.ErrPaymentNotRefundable),
		errors.Is(err, domain.ErrAmountExceedsOriginal),
		errors.Is(err, domain.ErrDuplicateRefundRequest),
		errors.Is(err, domain.ErrTicketAlreadyUsed),
		errors.Is(err, domain.ErrCallbackInFlight):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSignature):
		status = http.StatusUnauthorized
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createPaymentRequest struct {
	PayerID  string `json:"payer_id"`
	Purpose  string `json:"purpose"`
	TargetID string `json:"target_id"`
	Amount   int64  `json:"amount"`
	Method   string `json:"method"`
	Phone    string `json:"phone"`
}

// handleCreatePayment records the intent and fires the operator charge.
// A gateway failure still answers 201: the payment stays PENDING and the
// client retries initiation by polling status and re-submitting.
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	p, err := s.paymentUC.Create(r.Context(), req.PayerID, model.PaymentPurpose(req.Purpose), req.TargetID, req.Amount, model.PaymentMethod(req.Method), req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	instruction := ""
	if _, instr, err := s.txUC.Initiate(r.Context(), p.ID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", p.ID).Msg("charge initiation failed, payment left pending")
	} else {
		instruction = instr
		p.Status = model.PaymentStatusProcessing
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(p, instruction))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.paymentUC.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

// handleGetPaymentStatus serves the hot polling path through the redis
// cache, falling back to the ledger on a miss.
func (s *Server) handleGetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	if s.statusCache != nil {
		if status, err := s.statusCache.Get(r.Context(), reference); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"reference": reference, "status": string(status)})
			return
		}
	}

	p, err := s.paymentUC.GetByReference(r.Context(), reference)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.statusCache != nil {
		if err := s.statusCache.Set(r.Context(), reference, p.Status); err != nil {
			s.log.Warn().Err(err).Msg("status cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference": reference, "status": string(p.Status)})
}

type actorRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Actor == "" {
		req.Actor = "client"
	}

	p, err := s.paymentUC.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err = s.paymentUC.Cancel(r.Context(), p.ID, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.statusCache != nil {
		_ = s.statusCache.Invalidate(r.Context(), p.Reference)
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

func (s *Server) handleRetryPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.paymentUC.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, err)
		return
	}
	retry, err := s.paymentUC.Retry(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	instruction := ""
	if _, instr, err := s.txUC.Initiate(r.Context(), retry.ID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", retry.ID).Msg("retry initiation failed, payment left pending")
	} else {
		instruction = instr
		retry.Status = model.PaymentStatusProcessing
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(retry, instruction))
}

// handleWebhook ingests operator callbacks. The HMAC signature is the
// authentication; a duplicate delivery is answered 200 so the operator
// stops retrying.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var operator model.Operator
	switch chi.URLParam(r, "operator") {
	case "mtn":
		operator = model.OperatorMTN
	case "moov":
		operator = model.OperatorMoov
	default:
		writeError(w, domain.ErrUnsupportedMethod)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	t, err := s.txUC.IngestCallback(r.Context(), operator, body, r.Header.Get(signatureHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	if s.statusCache != nil {
		// transition committed; drop any stale cached status
		if p, err := s.paymentUC.Get(r.Context(), t.PaymentID); err == nil {
			_ = s.statusCache.Invalidate(r.Context(), p.Reference)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type validateTicketRequest struct {
	QRPayload   string `json:"qr_payload"`
	ValidatorID string `json:"validator_id"`
}

func (s *Server) handleValidateTicket(w http.ResponseWriter, r *http.Request) {
	var req validateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	t, err := s.ticketUC.Validate(r.Context(), req.QRPayload, req.ValidatorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticket_id": t.ID,
		"event_id":  t.EventID,
		"status":    string(t.Status),
		"used_at":   t.UsedAt,
	})
}

type requestRefundRequest struct {
	PaymentReference string `json:"payment_reference"`
	RequesterID      string `json:"requester_id"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
	Description      string `json:"description"`
}

func (s *Server) handleRequestRefund(w http.ResponseWriter, r *http.Request) {
	var req requestRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	p, err := s.paymentUC.GetByReference(r.Context(), req.PaymentReference)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := s.refundUC.Request(r.Context(), p.ID, req.RequesterID, req.Amount, model.RefundReason(req.Reason), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefundResponse(f))
}

func (s *Server) handleGetRefund(w http.ResponseWriter, r *http.Request) {
	f, err := s.refundUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(f))
}

type refundActionRequest struct {
	ProcessorID  string `json:"processor_id"`
	Comment      string `json:"comment"`
	Confirmation string `json:"confirmation"`
}

func (s *Server) handleOpenRefund(w http.ResponseWriter, r *http.Request) {
	var req refundActionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f, err := s.refundUC.Open(r.Context(), chi.URLParam(r, "id"), req.ProcessorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(f))
}

func (s *Server) handleApproveRefund(w http.ResponseWriter, r *http.Request) {
	var req refundActionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f, err := s.refundUC.Approve(r.Context(), chi.URLParam(r, "id"), req.ProcessorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(f))
}

func (s *Server) handleCompleteRefund(w http.ResponseWriter, r *http.Request) {
	var req refundActionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f, err := s.refundUC.Complete(r.Context(), chi.URLParam(r, "id"), req.Confirmation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(f))
}

func (s *Server) handleRejectRefund(w http.ResponseWriter, r *http.Request) {
	var req refundActionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f, err := s.refundUC.Reject(r.Context(), chi.URLParam(r, "id"), req.ProcessorID, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(f))
}
