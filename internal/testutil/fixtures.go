package testutil

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venturelink/payments-service/internal/domain"
)

func SeedPendingPayment(t *testing.T, db *sql.DB, reference string, amount int64, meta domain.PaymentMetadata) *domain.PaymentRecord {
	t.Helper()

	metadata, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}

	now := time.Now().UTC()
	p := &domain.PaymentRecord{
		ID:        uuid.New(),
		Reference: reference,
		Status:    domain.PaymentStatusPending,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "NGN",
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = db.Exec(
		`INSERT INTO payments (id, reference, status, amount, currency, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Reference, p.Status, p.Amount, p.Currency, p.Metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed payment %s: %v", reference, err)
	}
	return p
}

func GetPayment(t *testing.T, db *sql.DB, reference string) *domain.PaymentRecord {
	t.Helper()

	var p domain.PaymentRecord
	var metadata *[]byte
	err := db.QueryRow(
		`SELECT id, reference, status, gateway_transaction_id, amount, currency,
		 gateway_response, paid_at, metadata, created_at, updated_at
		 FROM payments WHERE reference = $1`, reference,
	).Scan(
		&p.ID, &p.Reference, &p.Status, &p.GatewayTransactionID, &p.Amount, &p.Currency,
		&p.GatewayResponse, &p.PaidAt, &metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("get payment %s: %v", reference, err)
	}
	if metadata != nil {
		p.Metadata = *metadata
	}
	return &p
}

func CountWebhookLogs(t *testing.T, db *sql.DB, reference string, status domain.WebhookLogStatus) int {
	t.Helper()

	var n int
	err := db.QueryRow(
		`SELECT count(*) FROM webhook_logs WHERE reference = $1 AND status = $2`,
		reference, status,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count webhook logs: %v", err)
	}
	return n
}

func GetSubscription(t *testing.T, db *sql.DB, userID uuid.UUID, planID string) (status string, paymentReference string, found bool) {
	t.Helper()

	err := db.QueryRow(
		`SELECT status, payment_reference FROM subscriptions WHERE user_id = $1 AND plan_id = $2`,
		userID, planID,
	).Scan(&status, &paymentReference)
	if err == sql.ErrNoRows {
		return "", "", false
	}
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	return status, paymentReference, true
}
