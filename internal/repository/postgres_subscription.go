package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reportloop/reportloop/internal/domain/subscription"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
)

type subscriptionRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `
	id, tenant_id, plan_id, external_subscription_id, subscription_status,
	current_period_start, current_period_end, trial_end, grace_period_until,
	cancel_at_period_end, cancelled_at, status, created_at, updated_at
`

// Upsert enforces at most one current subscription per tenant through the
// unique constraint on tenant_id. A resubscribing tenant replaces the row
// in place.
func (r *subscriptionRepository) Upsert(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, tenant_id, plan_id, external_subscription_id, subscription_status,
			current_period_start, current_period_end, trial_end, grace_period_until,
			cancel_at_period_end, cancelled_at, status, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :plan_id, :external_subscription_id, :subscription_status,
			:current_period_start, :current_period_end, :trial_end, :grace_period_until,
			:cancel_at_period_end, :cancelled_at, :status, :created_at, :updated_at
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			external_subscription_id = EXCLUDED.external_subscription_id,
			subscription_status = EXCLUDED.subscription_status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			trial_end = EXCLUDED.trial_end,
			grace_period_until = EXCLUDED.grace_period_until,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			cancelled_at = EXCLUDED.cancelled_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.DB().NamedExecContext(ctx, query, s); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetByTenantID(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1`

	var s subscription.Subscription
	if err := r.db.DB().GetContext(ctx, &s, query, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Tenant %s has no subscription", tenantID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE external_subscription_id = $1`

	var s subscription.Subscription
	if err := r.db.DB().GetContext(ctx, &s, query, externalSubscriptionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No subscription with external id %s", externalSubscriptionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_id = :plan_id,
			subscription_status = :subscription_status,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			trial_end = :trial_end,
			grace_period_until = :grace_period_until,
			cancel_at_period_end = :cancel_at_period_end,
			cancelled_at = :cancelled_at,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.DB().NamedExecContext(ctx, query, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", s.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
