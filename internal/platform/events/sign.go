package events

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Headers carried on every delivery request.
const (
	SignatureHeader = "X-Event-Signature"
	EventIDHeader   = "X-Event-ID"
	TimestampHeader = "X-Event-Timestamp"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of
// payload under secret. Comparison is constant-time.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
