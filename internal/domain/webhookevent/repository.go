package webhookevent

import (
	"context"
)

type Repository interface {
	// Insert stores the event row. When a row with the same EventID already
	// exists it returns ErrAlreadyExists without writing; the insert and
	// uniqueness check are a single atomic operation at the storage layer,
	// never a check-then-insert in application code.
	Insert(ctx context.Context, event *WebhookEvent) error

	GetByEventID(ctx context.Context, eventID string) (*WebhookEvent, error)

	// ListByTenant returns the most recent events for a tenant, newest
	// first, for audit and replay debugging.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*WebhookEvent, error)
}
