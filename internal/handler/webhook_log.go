package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/venturelink/payments-service/internal/domain"
)

type webhookLogReader interface {
	ListByReference(ctx context.Context, reference string, limit int) ([]domain.WebhookLog, error)
}

// WebhookLogHandler exposes the audit trail for operational queries:
// signature-failure spikes, stuck references, duplicate storms.
type WebhookLogHandler struct {
	logs webhookLogReader
}

func NewWebhookLogHandler(logs webhookLogReader) *WebhookLogHandler {
	return &WebhookLogHandler{logs: logs}
}

type webhookLogDTO struct {
	ID                   uuid.UUID `json:"id"`
	EventType            string    `json:"event_type"`
	Reference            string    `json:"reference"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty"`
	Status               string    `json:"status"`
	ErrorMessage         *string   `json:"error_message,omitempty"`
	ProcessedAt          time.Time `json:"processed_at"`
}

func (h *WebhookLogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		RespondValidationError(w, []FieldError{{Field: "reference", Message: "required"}})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be between 1 and 500"}})
			return
		}
		limit = n
	}

	logs, err := h.logs.ListByReference(r.Context(), reference, limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]webhookLogDTO, 0, len(logs))
	for _, l := range logs {
		dtos = append(dtos, webhookLogDTO{
			ID:                   l.ID,
			EventType:            l.EventType,
			Reference:            l.Reference,
			GatewayTransactionID: l.GatewayTransactionID,
			Status:               string(l.Status),
			ErrorMessage:         l.ErrorMessage,
			ProcessedAt:          l.ProcessedAt,
		})
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
