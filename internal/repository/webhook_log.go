package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venturelink/payments-service/internal/domain"
)

const webhookLogColumns = `id, event_type, reference, gateway_transaction_id,
	status, error_message, payload, processed_at`

// WebhookLogRepository is the append-only audit store. There is deliberately
// no update or delete: a row, once written, is the permanent record of that
// delivery attempt.
type WebhookLogRepository struct {
	db *sql.DB
}

func NewWebhookLogRepository(db *sql.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Create(ctx context.Context, log *domain.WebhookLog) error {
	return create(ctx, r.db, log)
}

// CreateTx appends a row inside tx. Inserting a processed row for an already
// processed (reference, gateway_transaction_id, event_type) tuple violates
// the dedup index and returns domain.ErrDuplicateEvent; the violation aborts
// tx, so the caller must roll back and record the duplicate separately.
func (r *WebhookLogRepository) CreateTx(ctx context.Context, tx *sql.Tx, log *domain.WebhookLog) error {
	return create(ctx, tx, log)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func create(ctx context.Context, ex execer, log *domain.WebhookLog) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO webhook_logs (
			id, event_type, reference, gateway_transaction_id,
			status, error_message, payload, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.EventType, log.Reference, log.GatewayTransactionID,
		log.Status, log.ErrorMessage, log.Payload, log.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create webhook log: %w", domain.ErrDuplicateEvent)
		}
		return fmt.Errorf("create webhook log: %w", err)
	}
	return nil
}

// HasProcessed reports whether a delivery with the same dedup tuple already
// has a processed row.
func (r *WebhookLogRepository) HasProcessed(ctx context.Context, tx *sql.Tx, reference, gatewayTransactionID, eventType string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM webhook_logs
			WHERE reference = $1 AND gateway_transaction_id = $2 AND event_type = $3 AND status = 'processed'
		)`,
		reference, gatewayTransactionID, eventType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("HasProcessed: %w", err)
	}
	return exists, nil
}

// ListByReference returns the audit trail for one payment, oldest first.
func (r *WebhookLogRepository) ListByReference(ctx context.Context, reference string, limit int) ([]domain.WebhookLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookLogColumns+` FROM webhook_logs
		WHERE reference = $1 ORDER BY processed_at LIMIT $2`,
		reference, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByReference: %w", err)
	}
	defer rows.Close()

	var logs []domain.WebhookLog
	for rows.Next() {
		l, err := scanWebhookLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByReference: scan: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByReference: rows: %w", err)
	}
	return logs, nil
}

func scanWebhookLog(s scanner) (*domain.WebhookLog, error) {
	var l domain.WebhookLog
	err := s.Scan(
		&l.ID, &l.EventType, &l.Reference, &l.GatewayTransactionID,
		&l.Status, &l.ErrorMessage, &l.Payload, &l.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
