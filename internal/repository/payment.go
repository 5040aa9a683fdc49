package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/venturelink/payments-service/internal/domain"
)

const paymentColumns = `id, reference, status, gateway_transaction_id, amount,
	currency, gateway_response, paid_at, metadata, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (
			id, reference, status, gateway_transaction_id, amount,
			currency, gateway_response, paid_at, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Reference, p.Status, p.GatewayTransactionID, p.Amount,
		p.Currency, p.GatewayResponse, p.PaidAt, p.Metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateReference)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReference: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return p, nil
}

// GetForUpdate locks the payment row for the duration of tx so concurrent
// deliveries of the same event serialize on it.
func (r *PaymentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, reference string) (*domain.PaymentRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1 FOR UPDATE`, reference,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

// ApplyTransition moves a pending payment into a terminal state. The status
// guard in the WHERE clause makes the update conditional: the returned bool
// is false when another delivery already won the race, and the caller must
// record a duplicate rather than retry.
func (r *PaymentRepository) ApplyTransition(
	ctx context.Context,
	tx *sql.Tx,
	reference string,
	status domain.PaymentStatus,
	gatewayTransactionID *string,
	gatewayResponse *string,
	paidAt *time.Time,
) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE payments
		SET status = $1, gateway_transaction_id = $2, gateway_response = $3, paid_at = $4, updated_at = now()
		WHERE reference = $5 AND status = 'pending'`,
		status, gatewayTransactionID, gatewayResponse, paidAt, reference,
	)
	if err != nil {
		return false, fmt.Errorf("ApplyTransition: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ApplyTransition: rows affected: %w", err)
	}
	return rows == 1, nil
}

func scanPayment(s scanner) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	var metadata *[]byte

	err := s.Scan(
		&p.ID, &p.Reference, &p.Status, &p.GatewayTransactionID, &p.Amount,
		&p.Currency, &p.GatewayResponse, &p.PaidAt, &metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata != nil {
		p.Metadata = *metadata
	}
	return &p, nil
}
