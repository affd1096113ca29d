package momo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
	"spotvibe-backend/internal/domain/ports/adapter"
)

var _ adapter.MomoGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway to use in tests and local
// development. Callbacks are signed with its webhook secret, so the full
// decode path is exercised without an operator.
type NoopGateway struct {
	operator      model.Operator
	webhookSecret string

	mu      sync.Mutex
	seq     int64
	charges map[string]int64 // external id -> amount
}

func NewNoopGateway(operator model.Operator, webhookSecret string) *NoopGateway {
	return &NoopGateway{
		operator:      operator,
		webhookSecret: webhookSecret,
		charges:       make(map[string]int64),
	}
}

func (g *NoopGateway) Operator() model.Operator { return g.operator }

func (g *NoopGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%s-%d", g.operator, g.seq)
}

func (g *NoopGateway) RequestToPay(ctx context.Context, p *model.Payment) (adapter.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.charges[id] = p.Amount
	return adapter.ChargeResult{ExternalID: id, Instruction: "noop: auto-confirm"}, nil
}

func (g *NoopGateway) DecodeCallback(body []byte, signature string) (adapter.CallbackEvent, error) {
	if !VerifyWebhookSignature(g.webhookSecret, body, signature) {
		return adapter.CallbackEvent{}, domain.ErrInvalidSignature
	}
	var cb struct {
		ExternalID string `json:"external_id"`
		Status     string `json:"status"`
		ErrorCode  string `json:"error_code"`
	}
	if err := json.Unmarshal(body, &cb); err != nil || cb.ExternalID == "" {
		return adapter.CallbackEvent{}, domain.ErrInvalidArgument
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	ev := adapter.CallbackEvent{ExternalID: cb.ExternalID, Raw: raw}
	switch cb.Status {
	case "SUCCESS":
		ev.Succeeded = true
	case "PENDING":
		ev.Pending = true
	default:
		ev.ErrorCode = cb.ErrorCode
		if ev.ErrorCode == "" {
			ev.ErrorCode = cb.Status
		}
	}
	return ev, nil
}

func (g *NoopGateway) QueryStatus(ctx context.Context, externalID string) (adapter.CallbackEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[externalID]; !ok {
		return adapter.CallbackEvent{}, domain.ErrUnknownTransaction
	}
	// A noop charge always succeeds once queried.
	return adapter.CallbackEvent{ExternalID: externalID, Succeeded: true, OperatorRef: "ref-" + externalID}, nil
}

func (g *NoopGateway) RequestRefund(ctx context.Context, externalID string, amount int64, reason string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[externalID]; !ok {
		return "", domain.ErrUnknownTransaction
	}
	return "refund-" + externalID, nil
}
