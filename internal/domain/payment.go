package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is accepted from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccessful || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// PaymentRecord is created in pending state by the payment-initiation flow
// and mutated exclusively by the webhook reconciler. Reference is assigned
// once and never changes; amount and currency are immutable after creation.
type PaymentRecord struct {
	ID                   uuid.UUID
	Reference            string
	Status               PaymentStatus
	GatewayTransactionID *string
	Amount               decimal.Decimal
	Currency             string
	GatewayResponse      *string
	PaidAt               *time.Time
	Metadata             json.RawMessage
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PaymentMetadata is the caller-supplied context carried on a payment.
// The webhook pipeline reads it for side-effect dispatch but never writes it.
type PaymentMetadata struct {
	UserID        string `json:"user_id,omitempty"`
	PlanID        string `json:"plan_id,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}
