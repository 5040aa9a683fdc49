package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type subscriptionRepo interface {
	Activate(ctx context.Context, userID uuid.UUID, planID, paymentReference string) error
}

// SubscriptionActivator turns a successful payment into an active
// subscription. Errors are logged and swallowed: activation is best-effort
// from the reconciler's point of view and can be replayed operationally from
// the audit trail.
type SubscriptionActivator struct {
	subscriptions subscriptionRepo
	logger        *slog.Logger
}

func NewSubscriptionActivator(subscriptions subscriptionRepo, logger *slog.Logger) *SubscriptionActivator {
	return &SubscriptionActivator{subscriptions: subscriptions, logger: logger}
}

func (a *SubscriptionActivator) PaymentSucceeded(ctx context.Context, reference string, userID uuid.UUID, planID string) {
	if err := a.subscriptions.Activate(ctx, userID, planID, reference); err != nil {
		a.logger.Error("subscription activation failed",
			"reference", reference,
			"user_id", userID,
			"plan_id", planID,
			"error", err,
		)
		return
	}

	a.logger.Info("subscription activated",
		"reference", reference,
		"user_id", userID,
		"plan_id", planID,
	)
}
