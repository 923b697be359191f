// Package signer implements HMAC-SHA256 webhook signing and verification,
// grounded in the teacher's services/payment-service webhook signature
// helpers and crypto/hmac's documented constant-time comparison contract.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// DefaultTolerance bounds how far a signed timestamp may drift from now
// before a signature is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// Signer produces and verifies the pair of headers spec.md §4.B/§6 requires:
// X-Webhook-Signature carries the bare lowercase hex HMAC-SHA256 of
// "<ms since epoch>." + body; X-Webhook-Timestamp carries the ms timestamp
// itself, signed but transmitted separately rather than folded into the
// signature header.
type Signer struct {
	Tolerance time.Duration
}

// New returns a Signer using DefaultTolerance.
func New() *Signer {
	return &Signer{Tolerance: DefaultTolerance}
}

// Sign returns the bare hex X-Webhook-Signature value for the given secret,
// body, and timestamp. The caller sends ts separately as X-Webhook-Timestamp.
func (s *Signer) Sign(secret string, body []byte, ts time.Time) string {
	payload := signedPayload(ts.UnixMilli(), body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex signature produced by Sign, along with the
// X-Webhook-Timestamp header value it was signed over, against secret and
// body, rejecting signatures whose timestamp has drifted outside the
// tolerance window.
func (s *Signer) Verify(secret string, body []byte, signatureHex string, timestampHeader string) error {
	ms, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("signer: malformed timestamp: %w", err)
	}

	tolerance := s.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	age := time.Since(time.UnixMilli(ms))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return fmt.Errorf("signer: timestamp outside tolerance window")
	}

	payload := signedPayload(ms, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("signer: malformed signature: %w", err)
	}
	if !hmac.Equal(expected, got) {
		return fmt.Errorf("signer: signature mismatch")
	}
	return nil
}

func signedPayload(ms int64, body []byte) []byte {
	prefix := strconv.FormatInt(ms, 10) + "."
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	out = append(out, body...)
	return out
}
