package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturelink/payments-service/internal/domain"
	"github.com/venturelink/payments-service/internal/repository"
	"github.com/venturelink/payments-service/internal/testutil"
)

func setupReconciler(t *testing.T, db *sql.DB) *Reconciler {
	t.Helper()

	activator := NewSubscriptionActivator(repository.NewSubscriptionRepository(db), slog.Default())
	return NewReconciler(
		repository.NewPaymentRepository(db),
		repository.NewWebhookLogRepository(db),
		db,
		activator,
		slog.Default(),
	)
}

func gatewayEvent(rawType, reference, txnID string) *domain.GatewayEvent {
	payload, _ := json.Marshal(map[string]any{
		"event": rawType,
		"data":  map[string]string{"id": txnID, "reference": reference},
	})
	return &domain.GatewayEvent{
		Kind:                 domain.KindOf(rawType),
		RawType:              rawType,
		Reference:            reference,
		GatewayTransactionID: txnID,
		GatewayResponse:      "Approved",
		OccurredAt:           time.Now().UTC(),
		RawPayload:           payload,
	}
}

func TestReconciler_SuccessTransition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	userID := uuid.New()
	testutil.SeedPendingPayment(t, db, "INV-001", 5000, domain.PaymentMetadata{
		UserID: userID.String(),
		PlanID: "sme-premium",
	})

	outcome, err := rec.Apply(ctx, gatewayEvent("payment.success", "INV-001", "txn_1"))
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusProcessed, outcome.Status)
	assert.True(t, outcome.Applied)

	p := testutil.GetPayment(t, db, "INV-001")
	assert.Equal(t, domain.PaymentStatusSuccessful, p.Status)
	require.NotNil(t, p.PaidAt)
	require.NotNil(t, p.GatewayTransactionID)
	assert.Equal(t, "txn_1", *p.GatewayTransactionID)
	require.NotNil(t, p.GatewayResponse)
	assert.Equal(t, "Approved", *p.GatewayResponse)

	assert.Equal(t, 1, testutil.CountWebhookLogs(t, db, "INV-001", domain.WebhookLogStatusProcessed))

	// Activation is dispatched after commit, off the request path.
	require.Eventually(t, func() bool {
		status, ref, found := testutil.GetSubscription(t, db, userID, "sme-premium")
		return found && status == "active" && ref == "INV-001"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestReconciler_FailedTransitionSetsNoPaidAt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	testutil.SeedPendingPayment(t, db, "INV-002", 5000, domain.PaymentMetadata{})

	outcome, err := rec.Apply(ctx, gatewayEvent("payment.failed", "INV-002", "txn_2"))
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	p := testutil.GetPayment(t, db, "INV-002")
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Nil(t, p.PaidAt)
}

func TestReconciler_DuplicateDelivery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	testutil.SeedPendingPayment(t, db, "INV-003", 5000, domain.PaymentMetadata{})
	evt := gatewayEvent("payment.success", "INV-003", "txn_3")

	first, err := rec.Apply(ctx, evt)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	paidAfterFirst := testutil.GetPayment(t, db, "INV-003").PaidAt

	second, err := rec.Apply(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusDuplicate, second.Status)
	assert.False(t, second.Applied)

	p := testutil.GetPayment(t, db, "INV-003")
	assert.Equal(t, domain.PaymentStatusSuccessful, p.Status)
	assert.True(t, p.PaidAt.Equal(*paidAfterFirst))

	assert.Equal(t, 1, testutil.CountWebhookLogs(t, db, "INV-003", domain.WebhookLogStatusProcessed))
	assert.Equal(t, 1, testutil.CountWebhookLogs(t, db, "INV-003", domain.WebhookLogStatusDuplicate))
}

func TestReconciler_TerminalStateImmutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	testutil.SeedPendingPayment(t, db, "INV-004", 5000, domain.PaymentMetadata{})

	_, err := rec.Apply(ctx, gatewayEvent("payment.success", "INV-004", "txn_4"))
	require.NoError(t, err)
	paid := testutil.GetPayment(t, db, "INV-004").PaidAt

	// A conflicting event after the terminal state is acknowledged but
	// applies nothing.
	outcome, err := rec.Apply(ctx, gatewayEvent("payment.failed", "INV-004", "txn_5"))
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusDuplicate, outcome.Status)
	assert.False(t, outcome.Applied)
	assert.Contains(t, outcome.Note, "superseded")

	p := testutil.GetPayment(t, db, "INV-004")
	assert.Equal(t, domain.PaymentStatusSuccessful, p.Status)
	assert.True(t, p.PaidAt.Equal(*paid))
}

func TestReconciler_UnknownReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	outcome, err := rec.Apply(ctx, gatewayEvent("payment.success", "INV-MISSING", "txn_6"))
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusFailed, outcome.Status)
	assert.False(t, outcome.Applied)

	assert.Equal(t, 1, testutil.CountWebhookLogs(t, db, "INV-MISSING", domain.WebhookLogStatusFailed))

	// Never synthesize a payment for an unknown reference.
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM payments WHERE reference = 'INV-MISSING'`).Scan(&n))
	assert.Zero(t, n)
}

func TestReconciler_InformationalEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	testutil.SeedPendingPayment(t, db, "INV-005", 5000, domain.PaymentMetadata{})

	for _, rawType := range []string{"transfer.success", "collection.received", "some.future.event", "payment.pending"} {
		outcome, err := rec.Apply(ctx, gatewayEvent(rawType, "INV-005", "txn_"+rawType))
		require.NoError(t, err, rawType)
		assert.Equal(t, domain.WebhookLogStatusProcessed, outcome.Status, rawType)
		assert.False(t, outcome.Applied, rawType)
	}

	p := testutil.GetPayment(t, db, "INV-005")
	assert.Equal(t, domain.PaymentStatusPending, p.Status)

	assert.Equal(t, 4, testutil.CountWebhookLogs(t, db, "INV-005", domain.WebhookLogStatusProcessed))
}

func TestReconciler_InformationalRedelivery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	rec := setupReconciler(t, db)

	evt := gatewayEvent("transfer.success", "TRF-001", "txn_7")

	first, err := rec.Apply(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusProcessed, first.Status)

	second, err := rec.Apply(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookLogStatusDuplicate, second.Status)
}
