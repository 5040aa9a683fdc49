// Package signature authenticates inbound gateway webhooks with a keyed MAC
// over the exact raw request bytes. Verification never re-serializes the
// payload, so canonicalization differences between us and the gateway cannot
// break it.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
)

// Result carries the verification outcome and, on failure, an operator-facing
// reason. The reason is written to the audit trail, never to the HTTP client.
type Result struct {
	Valid  bool
	Reason string
}

// Verify checks provided against an HMAC-SHA512 of rawBody under secret.
// Depending on integration version the gateway emits the digest hex- or
// base64-encoded, so both are tried before rejecting. All comparisons go
// through hmac.Equal; a missing signature or secret fails closed.
//
// The gateway signs only the body. The timestamp header feeds the staleness
// check and the audit trail, not the MAC input.
func Verify(rawBody []byte, provided, secret string) Result {
	if provided == "" {
		return Result{Reason: "missing signature"}
	}
	if secret == "" {
		return Result{Reason: "no webhook secret configured"}
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if decoded, err := hex.DecodeString(provided); err == nil && hmac.Equal(decoded, expected) {
		return Result{Valid: true}
	}
	if decoded, err := base64.StdEncoding.DecodeString(provided); err == nil && hmac.Equal(decoded, expected) {
		return Result{Valid: true}
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(provided); err == nil && hmac.Equal(decoded, expected) {
		return Result{Valid: true}
	}

	return Result{Reason: "signature mismatch"}
}

// Sign computes the hex-encoded HMAC-SHA512 of rawBody under secret. Used by
// tests and by outbound integrations that need to produce gateway-compatible
// signatures.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
