package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Activate upserts the subscription for (userID, planID). Re-activation from
// a redelivered side effect just refreshes the same row.
func (r *SubscriptionRepository) Activate(ctx context.Context, userID uuid.UUID, planID, paymentReference string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, user_id, plan_id, status, payment_reference, activated_at)
		VALUES ($1, $2, $3, 'active', $4, $5)
		ON CONFLICT (user_id, plan_id)
		DO UPDATE SET status = 'active', payment_reference = $4, activated_at = $5`,
		uuid.New(), userID, planID, paymentReference, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("Activate: %w", err)
	}
	return nil
}
