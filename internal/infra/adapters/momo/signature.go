package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature checks the operator callback signature:
// signature = hex(HMAC-SHA256(secret, raw body)). Both MTN and Moov sign
// the raw body; comparison is constant-time via hmac.Equal.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expected := h.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// SignWebhookBody produces the signature an operator would attach; used
// by tests and the sandbox gateways.
func SignWebhookBody(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
