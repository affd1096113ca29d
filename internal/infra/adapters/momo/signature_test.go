package momo

import (
	"errors"
	"testing"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"
)

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"transaction_id":"tx-1","status":"SUCCESS"}`)

	sig := SignWebhookBody(secret, body)
	if !VerifyWebhookSignature(secret, body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyWebhookSignature(secret, body, sig[:len(sig)-2]+"ff") {
		t.Fatal("tampered signature accepted")
	}
	if VerifyWebhookSignature("other-secret", body, sig) {
		t.Fatal("signature for another secret accepted")
	}
	if VerifyWebhookSignature(secret, []byte(`{"transaction_id":"tx-2"}`), sig) {
		t.Fatal("signature for another body accepted")
	}
	if VerifyWebhookSignature(secret, body, "not-hex") {
		t.Fatal("malformed signature accepted")
	}
}

func TestNoopGateway_DecodeCallback(t *testing.T) {
	g := NewNoopGateway(model.OperatorMTN, "secret")

	body := []byte(`{"external_id":"noop-MTN-1","status":"SUCCESS"}`)
	ev, err := g.DecodeCallback(body, SignWebhookBody("secret", body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ev.Succeeded || ev.ExternalID != "noop-MTN-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := g.DecodeCallback(body, "bad-signature"); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	failed := []byte(`{"external_id":"noop-MTN-1","status":"FAILED","error_code":"INSUFFICIENT_FUNDS"}`)
	ev, err = g.DecodeCallback(failed, SignWebhookBody("secret", failed))
	if err != nil {
		t.Fatalf("decode failed callback: %v", err)
	}
	if ev.Succeeded || ev.ErrorCode != "INSUFFICIENT_FUNDS" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
