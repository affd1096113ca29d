package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spotvibe-backend/internal/config"
	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
)

var _ adapter.MomoGateway = (*MoovGateway)(nil)

// MoovGateway implements adapter.MomoGateway against the Moov Money
// merchant API. Unlike MTN, Moov assigns the transaction id server-side
// and returns it in the initiation response.
type MoovGateway struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

func NewMoovGateway(cfg config.OperatorConfig) (*MoovGateway, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, errors.New("moov operator config incomplete")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.moov-africa.bj/merchant/v1"
	}
	return &MoovGateway{
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *MoovGateway) Operator() model.Operator { return model.OperatorMoov }

func (g *MoovGateway) RequestToPay(ctx context.Context, p *model.Payment) (adapter.ChargeResult, error) {
	payload := map[string]interface{}{
		"amount":       p.Amount,
		"currency":     "XOF",
		"msisdn":       p.Phone,
		"merchant_ref": p.Reference,
		"message":      "SpotVibe " + string(p.Purpose),
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transactions/push", bytes.NewReader(b))
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return adapter.ChargeResult{}, fmt.Errorf("moov push: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}

	var out struct {
		TransactionID string `json:"transaction_id"`
		Message       string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeResult{}, err
	}
	if out.TransactionID == "" {
		return adapter.ChargeResult{}, domain.ErrOperationFailed
	}
	instruction := out.Message
	if instruction == "" {
		instruction = "Composez *855# pour confirmer le paiement Moov"
	}
	return adapter.ChargeResult{ExternalID: out.TransactionID, Instruction: instruction}, nil
}

type moovCallbackBody struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"` // SUCCESS | FAILED | PENDING | CANCELLED
	Reference     string `json:"reference"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

func (g *MoovGateway) DecodeCallback(body []byte, signature string) (adapter.CallbackEvent, error) {
	if !VerifyWebhookSignature(g.webhookSecret, body, signature) {
		return adapter.CallbackEvent{}, domain.ErrInvalidSignature
	}
	var cb moovCallbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return adapter.CallbackEvent{}, domain.ErrInvalidArgument
	}
	if cb.TransactionID == "" {
		return adapter.CallbackEvent{}, domain.ErrInvalidArgument
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)

	ev := adapter.CallbackEvent{
		ExternalID:  cb.TransactionID,
		OperatorRef: cb.Reference,
		Raw:         raw,
	}
	switch cb.Status {
	case "SUCCESS":
		ev.Succeeded = true
	case "PENDING":
		ev.Pending = true
	default:
		ev.ErrorCode = cb.ErrorCode
		ev.ErrorMsg = cb.ErrorMessage
		if ev.ErrorCode == "" {
			ev.ErrorCode = cb.Status
		}
	}
	return ev, nil
}

func (g *MoovGateway) QueryStatus(ctx context.Context, externalID string) (adapter.CallbackEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transactions/"+externalID, nil)
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
		return adapter.CallbackEvent{}, fmt.Errorf("moov status query: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}

	var out moovCallbackBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CallbackEvent{}, err
	}
	ev := adapter.CallbackEvent{
		ExternalID:  externalID,
		OperatorRef: out.Reference,
	}
	switch out.Status {
	case "SUCCESS":
		ev.Succeeded = true
	case "PENDING":
		ev.Pending = true
	default:
		ev.ErrorCode = out.ErrorCode
		ev.ErrorMsg = out.ErrorMessage
		if ev.ErrorCode == "" {
			ev.ErrorCode = out.Status
		}
	}
	return ev, nil
}

func (g *MoovGateway) RequestRefund(ctx context.Context, externalID string, amount int64, reason string) (string, error) {
	payload := map[string]interface{}{
		"transaction_id": externalID,
		"amount":         amount,
		"reason":         reason,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transactions/refund", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("moov refund: unexpected status %d: %w", resp.StatusCode, domain.ErrOperationFailed)
	}

	var out struct {
		RefundID string `json:"refund_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.RefundID == "" {
		return "", domain.ErrOperationFailed
	}
	return out.RefundID, nil
}
