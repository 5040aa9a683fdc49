package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidSignature   = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid or missing"}
	ErrPayloadTooLarge    = &AppError{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook payload exceeds the size limit"}
	ErrStaleEvent         = &AppError{http.StatusBadRequest, "STALE_EVENT", "Event timestamp is outside the accepted window"}
	ErrDuplicateReference = &AppError{http.StatusConflict, "DUPLICATE_REFERENCE", "A payment with this reference already exists"}
)
