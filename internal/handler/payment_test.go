package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturelink/payments-service/internal/domain"
)

type mockPaymentStore struct {
	created *domain.PaymentRecord
	err     error
	found   *domain.PaymentRecord
}

func (m *mockPaymentStore) Create(_ context.Context, p *domain.PaymentRecord) error {
	m.created = p
	return m.err
}

func (m *mockPaymentStore) GetByReference(_ context.Context, reference string) (*domain.PaymentRecord, error) {
	if m.found == nil {
		return nil, domain.ErrNotFound
	}
	return m.found, nil
}

func TestInitiatePayment(t *testing.T) {
	validBody := `{"reference":"INV-001","amount":"5000.00","currency":"NGN","metadata":{"user_id":"` + uuid.NewString() + `","plan_id":"sme-premium"}}`

	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid request",
			body:       validBody,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid JSON",
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing reference",
			body:       `{"amount":"100","currency":"NGN"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "zero amount",
			body:       `{"reference":"INV-002","amount":"0","currency":"NGN"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad currency",
			body:       `{"reference":"INV-003","amount":"100","currency":"NAIRA"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad metadata user id",
			body:       `{"reference":"INV-004","amount":"100","currency":"NGN","metadata":{"user_id":"not-a-uuid"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "duplicate reference",
			body:       validBody,
			storeErr:   domain.ErrDuplicateReference,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_REFERENCE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockPaymentStore{err: tc.storeErr}
			h := NewPaymentHandler(store)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.InitiatePayment(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestInitiatePayment_CreatesPendingRecord(t *testing.T) {
	store := &mockPaymentStore{}
	h := NewPaymentHandler(store)

	body := `{"reference":"INV-010","amount":"2500.50","currency":"NGN","metadata":{"payment_method":"card"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.InitiatePayment(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, "INV-010", store.created.Reference)
	assert.Equal(t, domain.PaymentStatusPending, store.created.Status)
	assert.Equal(t, "2500.5", store.created.Amount.String())
	assert.Nil(t, store.created.PaidAt)
	assert.NotEqual(t, uuid.Nil, store.created.ID)
}

func TestGetPayment_NotFound(t *testing.T) {
	h := NewPaymentHandler(&mockPaymentStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/INV-404", nil)
	req.SetPathValue("reference", "INV-404")
	rr := httptest.NewRecorder()
	h.GetPayment(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
