// Package gateway parses the payment gateway's webhook envelope into the
// canonical internal event and enforces the pre-processing guards: payload
// size and timestamp staleness.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/venturelink/payments-service/internal/domain"
)

const (
	// MaxPayloadBytes bounds allocation before any parsing or signature work.
	MaxPayloadBytes = 32 << 10

	// DefaultTolerance is how far in the past (or future, for clock skew) an
	// event's declared timestamp may lie before it is treated as a replay.
	DefaultTolerance = 5 * time.Minute
)

var ErrStaleEvent = errors.New("event timestamp outside tolerance window")

// ParseError marks a payload the normalizer could not accept. The handler
// maps it to a client error; everything else is treated as transient.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

type envelope struct {
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
	Data      struct {
		ID              string          `json:"id"`
		Reference       string          `json:"reference"`
		Amount          decimal.Decimal `json:"amount"`
		Currency        string          `json:"currency"`
		Status          string          `json:"status"`
		GatewayResponse string          `json:"gateway_response"`
		PaidAt          *time.Time      `json:"paid_at"`
	} `json:"data"`
}

// EventTimestamp extracts only the envelope's createdAt so staleness can be
// checked before the payload is fully parsed. A payload too malformed to
// yield a timestamp falls through to Normalize for a proper parse error.
func EventTimestamp(raw []byte) (time.Time, error) {
	var peek struct {
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return time.Time{}, fmt.Errorf("EventTimestamp: %w", err)
	}
	return peek.CreatedAt, nil
}

// CheckStaleness rejects timestamps outside the tolerance window around now.
// A zero timestamp is stale: the gateway always declares one, so its absence
// is indistinguishable from an arbitrarily old replay.
func CheckStaleness(ts, now time.Time, tolerance time.Duration) error {
	if ts.IsZero() {
		return fmt.Errorf("CheckStaleness: missing event timestamp: %w", ErrStaleEvent)
	}
	age := now.Sub(ts)
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("CheckStaleness: event aged %s: %w", age.Round(time.Second), ErrStaleEvent)
	}
	return nil
}

// Normalize parses a raw gateway payload into the canonical event. The raw
// bytes are carried along verbatim for the audit trail.
func Normalize(raw []byte) (*domain.GatewayEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ParseError{msg: "malformed JSON payload"}
	}

	var missing []string
	if env.Event == "" {
		missing = append(missing, "event")
	}
	if env.Data.Reference == "" {
		missing = append(missing, "data.reference")
	}
	if len(missing) > 0 {
		return nil, &ParseError{msg: "missing required fields: " + strings.Join(missing, ", ")}
	}

	return &domain.GatewayEvent{
		Kind:                 domain.KindOf(env.Event),
		RawType:              env.Event,
		Reference:            env.Data.Reference,
		GatewayTransactionID: env.Data.ID,
		Amount:               env.Data.Amount,
		Currency:             env.Data.Currency,
		GatewayResponse:      env.Data.GatewayResponse,
		OccurredAt:           env.CreatedAt,
		RawPayload:           json.RawMessage(raw),
	}, nil
}
