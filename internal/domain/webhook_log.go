package domain

import (
	"time"

	"github.com/google/uuid"
)

type WebhookLogStatus string

const (
	WebhookLogStatusProcessed WebhookLogStatus = "processed"
	WebhookLogStatusFailed    WebhookLogStatus = "failed"
	WebhookLogStatusDuplicate WebhookLogStatus = "duplicate"
)

// WebhookLog is the append-only audit record of one inbound gateway
// delivery. Rows are never updated or deleted; the payload is kept verbatim,
// including deliveries that failed signature checks or parsing.
type WebhookLog struct {
	ID                   uuid.UUID
	EventType            string
	Reference            string
	GatewayTransactionID string
	Status               WebhookLogStatus
	ErrorMessage         *string
	Payload              []byte
	ProcessedAt          time.Time
}
