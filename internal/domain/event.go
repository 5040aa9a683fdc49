package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies a gateway event. Unrecognized event types map to
// EventUnknown rather than being dropped, so forward-compatible additions
// from the gateway are logged instead of rejected.
type EventKind string

const (
	EventPaymentSuccess   EventKind = "payment.success"
	EventPaymentFailed    EventKind = "payment.failed"
	EventPaymentPending   EventKind = "payment.pending"
	EventPaymentCancelled EventKind = "payment.cancelled"

	// Informational kinds: logged, never transition a payment.
	EventTransferSuccess    EventKind = "transfer.success"
	EventTransferFailed     EventKind = "transfer.failed"
	EventCollectionReceived EventKind = "collection.received"

	EventUnknown EventKind = "unknown"
)

// KindOf maps a raw gateway event type to its kind.
func KindOf(rawType string) EventKind {
	switch EventKind(rawType) {
	case EventPaymentSuccess, EventPaymentFailed, EventPaymentPending, EventPaymentCancelled,
		EventTransferSuccess, EventTransferFailed, EventCollectionReceived:
		return EventKind(rawType)
	default:
		return EventUnknown
	}
}

// TargetStatus returns the payment status this kind transitions into.
// Informational kinds, payment.pending and unknown kinds return false: they
// are acknowledged and audit-logged but apply no state change.
func (k EventKind) TargetStatus() (PaymentStatus, bool) {
	switch k {
	case EventPaymentSuccess:
		return PaymentStatusSuccessful, true
	case EventPaymentFailed:
		return PaymentStatusFailed, true
	case EventPaymentCancelled:
		return PaymentStatusCancelled, true
	default:
		return "", false
	}
}

// GatewayEvent is the canonical form of an inbound gateway notification
// after signature verification and normalization.
type GatewayEvent struct {
	Kind                 EventKind
	RawType              string
	Reference            string
	GatewayTransactionID string
	Amount               decimal.Decimal
	Currency             string
	GatewayResponse      string
	OccurredAt           time.Time
	RawPayload           json.RawMessage
}
