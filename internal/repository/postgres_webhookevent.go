package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
)

type webhookEventRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewWebhookEventRepository(db postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

// Insert relies on the unique index on event_id: two concurrent deliveries
// of the same event race on the insert and exactly one wins. The loser sees
// ErrAlreadyExists and treats the event as already processed.
func (r *webhookEventRepository) Insert(ctx context.Context, e *webhookevent.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, event_id, event_type, tenant_id, payload, received_at)
		VALUES (:id, :event_id, :event_type, :tenant_id, :payload, :received_at)
	`
	if _, err := r.db.DB().NamedExecContext(ctx, query, e); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Event was already processed").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	query := `
		SELECT id, event_id, event_type, tenant_id, payload, received_at
		FROM webhook_events
		WHERE event_id = $1
	`
	var e webhookevent.WebhookEvent
	if err := r.db.DB().GetContext(ctx, &e, query, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("webhook event not found").
				WithHintf("No event with id %s", eventID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load webhook event").
			Mark(ierr.ErrDatabase)
	}
	return &e, nil
}

func (r *webhookEventRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*webhookevent.WebhookEvent, error) {
	query := `
		SELECT id, event_id, event_type, tenant_id, payload, received_at
		FROM webhook_events
		WHERE tenant_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`
	events := make([]*webhookevent.WebhookEvent, 0)
	if err := r.db.DB().SelectContext(ctx, &events, query, tenantID, limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list webhook events").
			Mark(ierr.ErrDatabase)
	}
	return events, nil
}
