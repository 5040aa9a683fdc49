package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test_secret"

func mac(body []byte, secret string) []byte {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}

func TestVerify(t *testing.T) {
	body := []byte(`{"event":"payment.success","data":{"reference":"INV-001"}}`)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantValid bool
	}{
		{
			name:      "valid hex signature",
			body:      body,
			signature: hex.EncodeToString(mac(body, testSecret)),
			secret:    testSecret,
			wantValid: true,
		},
		{
			name:      "valid base64 signature",
			body:      body,
			signature: base64.StdEncoding.EncodeToString(mac(body, testSecret)),
			secret:    testSecret,
			wantValid: true,
		},
		{
			name:      "valid unpadded base64 signature",
			body:      body,
			signature: base64.RawStdEncoding.EncodeToString(mac(body, testSecret)),
			secret:    testSecret,
			wantValid: true,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: hex.EncodeToString(mac(body, "other-secret")),
			secret:    testSecret,
			wantValid: false,
		},
		{
			name:      "missing signature",
			body:      body,
			signature: "",
			secret:    testSecret,
			wantValid: false,
		},
		{
			name:      "missing secret",
			body:      body,
			signature: hex.EncodeToString(mac(body, testSecret)),
			secret:    "",
			wantValid: false,
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "not-hex-not-base64!!!",
			secret:    testSecret,
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Verify(tc.body, tc.signature, tc.secret)
			assert.Equal(t, tc.wantValid, res.Valid)
			if !tc.wantValid {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestVerify_SingleByteMutation(t *testing.T) {
	body := []byte(`{"event":"payment.success","data":{"reference":"INV-001"}}`)
	sig := Sign(body, testSecret)

	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01
		assert.False(t, Verify(mutated, sig, testSecret).Valid, "mutated body byte %d accepted", i)
	}

	raw, _ := hex.DecodeString(sig)
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01
		assert.False(t, Verify(body, hex.EncodeToString(mutated), testSecret).Valid, "mutated signature byte %d accepted", i)
	}
}

func TestSign_RoundTrip(t *testing.T) {
	body := []byte(`{"anything":"at all"}`)
	assert.True(t, Verify(body, Sign(body, testSecret), testSecret).Valid)
}
