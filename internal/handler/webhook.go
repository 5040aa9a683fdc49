package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/payments-service/internal/domain"
	"github.com/venturelink/payments-service/internal/gateway"
	"github.com/venturelink/payments-service/internal/logging"
	"github.com/venturelink/payments-service/internal/secrets"
	"github.com/venturelink/payments-service/internal/service"
	"github.com/venturelink/payments-service/internal/signature"
)

const (
	signatureHeader = "X-Gateway-Signature"
	timestampHeader = "X-Gateway-Timestamp"
)

type reconciler interface {
	Apply(ctx context.Context, evt *domain.GatewayEvent) (*service.Outcome, error)
}

type webhookLogWriter interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
}

// WebhookHandler is the inbound entry point for gateway notifications. The
// guard sequence is fixed: size, signature, staleness, parse, then
// reconciliation. Everything past the size guard leaves an audit row, so
// forged-signature and malformed-payload spikes stay observable.
type WebhookHandler struct {
	reconciler reconciler
	logs       webhookLogWriter
	secrets    secrets.Source
	maxBody    int64
	tolerance  time.Duration
	timeout    time.Duration
	now        func() time.Time
}

func NewWebhookHandler(rec reconciler, logs webhookLogWriter, src secrets.Source, maxBody int64, tolerance, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		reconciler: rec,
		logs:       logs,
		secrets:    src,
		maxBody:    maxBody,
		tolerance:  tolerance,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *WebhookHandler) HandleGatewayEvent(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if r.ContentLength > h.maxBody {
		RespondAppError(w, ErrPayloadTooLarge, nil)
		return
	}

	// Read one byte past the cap to distinguish "exactly at the limit" from
	// "over it" without unbounded allocation.
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if int64(len(body)) > h.maxBody {
		RespondAppError(w, ErrPayloadTooLarge, nil)
		return
	}

	secret, err := h.secrets.CurrentSecret(r.Context())
	if err != nil {
		log.Error("webhook secret lookup failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	if res := signature.Verify(body, r.Header.Get(signatureHeader), secret); !res.Valid {
		log.Warn("webhook signature verification failed", "reason", res.Reason)
		h.audit(r.Context(), body, "invalid signature")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	// Staleness uses the envelope's declared createdAt, falling back to the
	// gateway's timestamp header when the body is too mangled to peek.
	ts, tsErr := gateway.EventTimestamp(body)
	if tsErr != nil {
		if headerTS, err := time.Parse(time.RFC3339, r.Header.Get(timestampHeader)); err == nil {
			ts, tsErr = headerTS, nil
		}
	}
	if tsErr == nil {
		if staleErr := gateway.CheckStaleness(ts, h.now(), h.tolerance); staleErr != nil {
			log.Warn("stale webhook rejected", "event_timestamp", ts, "error", staleErr)
			h.audit(r.Context(), body, "stale event timestamp")
			RespondAppError(w, ErrStaleEvent, nil)
			return
		}
	}

	evt, err := gateway.Normalize(body)
	if err != nil {
		log.Warn("failed to normalize webhook payload", "error", err)
		h.audit(r.Context(), body, err.Error())
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outcome, err := h.reconciler.Apply(ctx, evt)
	if err != nil {
		// Transient: store down or deadline hit. 5xx so the gateway retries.
		log.Error("webhook reconciliation failed", "reference", evt.Reference, "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("webhook acknowledged",
		"reference", evt.Reference,
		"event_type", evt.RawType,
		"outcome", outcome.Status,
		"applied", outcome.Applied,
	)

	RespondSuccess(w, http.StatusOK, map[string]string{
		"status":    string(outcome.Status),
		"reference": evt.Reference,
	})
}

// audit records a rejected delivery. The payload may be arbitrarily
// malformed, so reference and event type are extracted best-effort; the raw
// bytes are kept either way. Audit failures are logged but do not change the
// response: the rejection stands.
func (h *WebhookHandler) audit(ctx context.Context, body []byte, reason string) {
	var peek struct {
		Event string `json:"event"`
		Data  struct {
			ID        string `json:"id"`
			Reference string `json:"reference"`
		} `json:"data"`
	}
	_ = json.Unmarshal(body, &peek)

	entry := &domain.WebhookLog{
		ID:                   uuid.New(),
		EventType:            peek.Event,
		Reference:            peek.Data.Reference,
		GatewayTransactionID: peek.Data.ID,
		Status:               domain.WebhookLogStatusFailed,
		ErrorMessage:         &reason,
		Payload:              body,
		ProcessedAt:          h.now(),
	}
	if err := h.logs.Create(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to write rejection audit record", "error", err)
	}
}
