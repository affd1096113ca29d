package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
)

var _ adapter.MomoGateway = (*MTNGateway)(nil)

// MTNGateway implements adapter.MomoGateway against the MTN MoMo
// collections API. The caller supplies X-Reference-Id; MTN echoes it as
// the transaction id, so the external id is known before the HTTP call.
type MTNGateway struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

func NewMTNGateway(cfg config.OperatorConfig) (*MTNGateway, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, errors.New("mtn operator config incomplete")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://proxy.momoapi.mtn.com/collection/v1_0"
	}
	return &MTNGateway{
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *MTNGateway) Operator() model.Operator { return model.OperatorMTN }

func (g *MTNGateway) RequestToPay(ctx context.Context, p *model.Payment) (adapter.ChargeResult, error) {
	externalID := uuid.NewString()
	payload := map[string]interface{}{
		"amount":     fmt.Sprintf("%d", p.Amount),
		"currency":   "XOF",
		"externalId": p.Reference,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     p.Phone,
		},
		"payerMessage": "SpotVibe",
		"payeeNote":    string(p.Purpose),
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/requesttopay", bytes.NewReader(b))
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Reference-Id", externalID)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return adapter.ChargeResult{}, fmt.Errorf("mtn requesttopay: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}
	return adapter.ChargeResult{
		ExternalID:  externalID,
		Instruction: "Confirmez le paiement sur votre telephone MTN (*126#)",
	}, nil
}

type mtnCallbackBody struct {
	ReferenceID string                 `json:"referenceId"`
	Status      string                 `json:"status"` // SUCCESSFUL | FAILED | PENDING
	FinancialID string                 `json:"financialTransactionId"`
	Reason      map[string]interface{} `json:"reason"`
}

func (g *MTNGateway) DecodeCallback(body []byte, signature string) (adapter.CallbackEvent, error) {
	if !VerifyWebhookSignature(g.webhookSecret, body, signature) {
		return adapter.CallbackEvent{}, domain.ErrInvalidSignature
	}
	var cb mtnCallbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return adapter.CallbackEvent{}, domain.ErrInvalidArgument
	}
	if cb.ReferenceID == "" {
		return adapter.CallbackEvent{}, domain.ErrInvalidArgument
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)

	ev := adapter.CallbackEvent{
		ExternalID:  cb.ReferenceID,
		OperatorRef: cb.FinancialID,
		Raw:         raw,
	}
	switch cb.Status {
	case "SUCCESSFUL":
		ev.Succeeded = true
	case "PENDING":
		ev.Pending = true
	default:
		if code, ok := cb.Reason["code"].(string); ok {
			ev.ErrorCode = code
		}
		if msg, ok := cb.Reason["message"].(string); ok {
			ev.ErrorMsg = msg
		}
		if ev.ErrorCode == "" {
			ev.ErrorCode = cb.Status
		}
	}
	return ev, nil
}

func (g *MTNGateway) QueryStatus(ctx context.Context, externalID string) (adapter.CallbackEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/requesttopay/"+externalID, nil)
	if err != nil {
		return adapter.CallbackEvent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.CallbackEvent{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return adapter.CallbackEvent{}, domain.ErrUnknownTransaction
	}
	if resp.StatusCode != http.StatusOK {
		return adapter.CallbackEvent{}, fmt.Errorf("mtn status query: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}

	var out mtnCallbackBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CallbackEvent{}, err
	}
	ev := adapter.CallbackEvent{
		ExternalID:  externalID,
		OperatorRef: out.FinancialID,
	}
	switch out.Status {
	case "SUCCESSFUL":
		ev.Succeeded = true
	case "PENDING":
		ev.Pending = true
	default:
		ev.ErrorCode = out.Status
	}
	return ev, nil
}

func (g *MTNGateway) RequestRefund(ctx context.Context, externalID string, amount int64, reason string) (string, error) {
	refundID := uuid.NewString()
	payload := map[string]interface{}{
		"amount":              fmt.Sprintf("%d", amount),
		"currency":            "XOF",
		"referenceIdToRefund": externalID,
		"payerMessage":        reason,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refund", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Reference-Id", refundID)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("mtn refund: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}
	return refundID, nil
}
