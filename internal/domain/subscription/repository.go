package subscription

import (
	"context"
)

type Repository interface {
	// Upsert creates the subscription row or replaces the existing one for
	// the same tenant. Uniqueness on tenant id is enforced at the storage
	// layer.
	Upsert(ctx context.Context, subscription *Subscription) error

	GetByTenantID(ctx context.Context, tenantID string) (*Subscription, error)

	// GetByExternalID looks a subscription up by the provider-assigned id.
	// Lifecycle transitions resolve their target row this way.
	GetByExternalID(ctx context.Context, externalSubscriptionID string) (*Subscription, error)

	Update(ctx context.Context, subscription *Subscription) error
}
