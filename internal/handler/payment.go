package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venturelink/payments-service/internal/domain"
	"github.com/venturelink/payments-service/internal/logging"
)

type paymentStore interface {
	Create(ctx context.Context, p *domain.PaymentRecord) error
	GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error)
}

type PaymentHandler struct {
	payments paymentStore
}

func NewPaymentHandler(payments paymentStore) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type initiatePaymentRequest struct {
	Reference string                 `json:"reference"`
	Amount    decimal.Decimal        `json:"amount"`
	Currency  string                 `json:"currency"`
	Metadata  domain.PaymentMetadata `json:"metadata"`
}

func (r initiatePaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Reference == "" {
		errs = append(errs, FieldError{Field: "reference", Message: "required"})
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if len(r.Currency) != 3 {
		errs = append(errs, FieldError{Field: "currency", Message: "must be a 3-letter ISO code"})
	}
	if r.Metadata.UserID != "" {
		if _, err := uuid.Parse(r.Metadata.UserID); err != nil {
			errs = append(errs, FieldError{Field: "metadata.user_id", Message: "must be a valid UUID"})
		}
	}

	return errs
}

type paymentDTO struct {
	ID                   uuid.UUID       `json:"id"`
	Reference            string          `json:"reference"`
	Status               string          `json:"status"`
	GatewayTransactionID *string         `json:"gateway_transaction_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	GatewayResponse      *string         `json:"gateway_response,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toPaymentDTO(p *domain.PaymentRecord) paymentDTO {
	return paymentDTO{
		ID:                   p.ID,
		Reference:            p.Reference,
		Status:               string(p.Status),
		GatewayTransactionID: p.GatewayTransactionID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		GatewayResponse:      p.GatewayResponse,
		PaidAt:               p.PaidAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// InitiatePayment creates the pending record a later webhook will reconcile
// against. The caller owns the reference; retrying with the same reference
// is a conflict, not a new payment.
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		log.Error("failed to marshal payment metadata", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	now := time.Now().UTC()
	payment := &domain.PaymentRecord{
		ID:        uuid.New(),
		Reference: req.Reference,
		Status:    domain.PaymentStatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.payments.Create(r.Context(), payment); err != nil {
		RespondDomainError(w, err)
		return
	}

	log.Info("payment initiated", "reference", payment.Reference, "amount", payment.Amount, "currency", payment.Currency)
	RespondSuccess(w, http.StatusCreated, toPaymentDTO(payment))
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")
	if reference == "" {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	payment, err := h.payments.GetByReference(r.Context(), reference)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(payment))
}
