package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/payments-service/internal/domain"
)

type paymentRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, reference string) (*domain.PaymentRecord, error)
	ApplyTransition(ctx context.Context, tx *sql.Tx, reference string, status domain.PaymentStatus, gatewayTransactionID, gatewayResponse *string, paidAt *time.Time) (bool, error)
}

type webhookLogRepo interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
	CreateTx(ctx context.Context, tx *sql.Tx, log *domain.WebhookLog) error
	HasProcessed(ctx context.Context, tx *sql.Tx, reference, gatewayTransactionID, eventType string) (bool, error)
}

// ActivationDispatcher receives the downstream side effect of a successful
// payment. Implementations must be safe to call concurrently and must not
// assume the caller waits for them.
type ActivationDispatcher interface {
	PaymentSucceeded(ctx context.Context, reference string, userID uuid.UUID, planID string)
}

// Outcome describes how one verified, normalized event was resolved. Exactly
// one audit row is written per outcome.
type Outcome struct {
	Status  domain.WebhookLogStatus
	Applied bool
	Note    string
}

const sideEffectTimeout = 10 * time.Second

// Reconciler applies verified gateway events to the payment state machine.
// Dedup check, row lock and conditional update run in one transaction so
// concurrent redeliveries of the same event cannot both mutate the payment.
type Reconciler struct {
	payments  paymentRepo
	logs      webhookLogRepo
	db        *sql.DB
	activator ActivationDispatcher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(payments paymentRepo, logs webhookLogRepo, db *sql.DB, activator ActivationDispatcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		payments:  payments,
		logs:      logs,
		db:        db,
		activator: activator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply reconciles one event. A nil error means the delivery was resolved
// and acknowledged, whatever the outcome; a non-nil error is transient and
// the caller should have the gateway retry.
func (r *Reconciler) Apply(ctx context.Context, evt *domain.GatewayEvent) (*Outcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Apply: begin tx: %w", err)
	}
	defer tx.Rollback()

	dup, err := r.logs.HasProcessed(ctx, tx, evt.Reference, evt.GatewayTransactionID, evt.RawType)
	if err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}
	if dup {
		return r.finishTx(ctx, tx, evt, domain.WebhookLogStatusDuplicate, "event already processed")
	}

	target, transitions := evt.Kind.TargetStatus()
	if !transitions {
		note := "informational event, no state transition"
		if evt.Kind == domain.EventUnknown {
			note = "unrecognized event type " + evt.RawType + ", logged only"
		}
		return r.finishTx(ctx, tx, evt, domain.WebhookLogStatusProcessed, note)
	}

	payment, err := r.payments.GetForUpdate(ctx, tx, evt.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The initiating write may not have committed, or the reference
			// is simply unknown. Reportable inconsistency, not a gateway
			// fault: acknowledge after logging, never synthesize a payment.
			tx.Rollback()
			return r.record(ctx, evt, domain.WebhookLogStatusFailed, "no payment record for reference")
		}
		return nil, fmt.Errorf("Apply: %w", err)
	}

	if payment.Status.IsTerminal() {
		return r.finishTx(ctx, tx, evt, domain.WebhookLogStatusDuplicate,
			fmt.Sprintf("superseded: payment already %s", payment.Status))
	}

	var gatewayTxID, gatewayResponse *string
	if evt.GatewayTransactionID != "" {
		gatewayTxID = &evt.GatewayTransactionID
	}
	if evt.GatewayResponse != "" {
		gatewayResponse = &evt.GatewayResponse
	}
	var paidAt *time.Time
	if target == domain.PaymentStatusSuccessful {
		now := r.now()
		paidAt = &now
	}

	applied, err := r.payments.ApplyTransition(ctx, tx, evt.Reference, target, gatewayTxID, gatewayResponse, paidAt)
	if err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}
	if !applied {
		return r.finishTx(ctx, tx, evt, domain.WebhookLogStatusDuplicate, "superseded: concurrent transition won")
	}

	outcome, err := r.finishTx(ctx, tx, evt, domain.WebhookLogStatusProcessed, "")
	if err != nil {
		return nil, err
	}
	outcome.Applied = true

	r.logger.Info("payment state transition applied",
		"reference", evt.Reference,
		"event_type", evt.RawType,
		"status", target,
	)

	if target == domain.PaymentStatusSuccessful {
		r.dispatchSideEffects(evt, payment)
	}

	return outcome, nil
}

// finishTx appends the audit row and commits. A dedup-index violation means
// a concurrent delivery committed its processed row first; the aborted tx is
// rolled back and a duplicate row recorded outside it.
func (r *Reconciler) finishTx(ctx context.Context, tx *sql.Tx, evt *domain.GatewayEvent, status domain.WebhookLogStatus, note string) (*Outcome, error) {
	if err := r.logs.CreateTx(ctx, tx, r.logFor(evt, status, note)); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			tx.Rollback()
			return r.record(ctx, evt, domain.WebhookLogStatusDuplicate, "event already processed")
		}
		return nil, fmt.Errorf("finishTx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("finishTx: commit: %w", err)
	}
	return &Outcome{Status: status, Note: note}, nil
}

// record appends an audit row outside any transaction.
func (r *Reconciler) record(ctx context.Context, evt *domain.GatewayEvent, status domain.WebhookLogStatus, note string) (*Outcome, error) {
	if err := r.logs.Create(ctx, r.logFor(evt, status, note)); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return &Outcome{Status: status, Note: note}, nil
}

func (r *Reconciler) logFor(evt *domain.GatewayEvent, status domain.WebhookLogStatus, note string) *domain.WebhookLog {
	var errMsg *string
	if note != "" && status != domain.WebhookLogStatusProcessed {
		errMsg = &note
	}
	return &domain.WebhookLog{
		ID:                   uuid.New(),
		EventType:            evt.RawType,
		Reference:            evt.Reference,
		GatewayTransactionID: evt.GatewayTransactionID,
		Status:               status,
		ErrorMessage:         errMsg,
		Payload:              evt.RawPayload,
		ProcessedAt:          r.now(),
	}
}

// dispatchSideEffects triggers subscription activation after the transition
// has committed. It runs detached from the request context: a slow or failing
// activation must never delay or fail the webhook acknowledgment.
func (r *Reconciler) dispatchSideEffects(evt *domain.GatewayEvent, payment *domain.PaymentRecord) {
	if r.activator == nil || len(payment.Metadata) == 0 {
		return
	}

	var meta domain.PaymentMetadata
	if err := json.Unmarshal(payment.Metadata, &meta); err != nil {
		r.logger.Warn("unreadable payment metadata, skipping side effects",
			"reference", evt.Reference, "error", err)
		return
	}
	if meta.UserID == "" || meta.PlanID == "" {
		return
	}
	userID, err := uuid.Parse(meta.UserID)
	if err != nil {
		r.logger.Warn("invalid user_id in payment metadata, skipping side effects",
			"reference", evt.Reference, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		r.activator.PaymentSucceeded(ctx, evt.Reference, userID, meta.PlanID)
	}()
}
