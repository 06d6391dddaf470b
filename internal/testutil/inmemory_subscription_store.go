package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/reportloop/reportloop/internal/domain/subscription"
	ierr "github.com/reportloop/reportloop/internal/errors"
)

// InMemorySubscriptionStore keeps at most one subscription per tenant,
// mirroring the unique constraint on tenant_id in postgres.
type InMemorySubscriptionStore struct {
	mu       sync.RWMutex
	byTenant map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		byTenant: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.byTenant[sub.TenantID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.byTenant[sub.TenantID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) GetByTenantID(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.byTenant[tenantID]; ok {
		return sub, nil
	}
	return nil, ierr.NewError("subscription not found").
		WithHintf("No subscription for tenant %s", tenantID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.byTenant {
		if sub.ExternalSubscriptionID == externalSubscriptionID {
			return sub, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHintf("No subscription with external id %s", externalSubscriptionID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTenant[sub.TenantID]; !ok {
		return ierr.NewError("subscription not found").
			WithHintf("No subscription for tenant %s", sub.TenantID).
			Mark(ierr.ErrNotFound)
	}

	sub.UpdatedAt = time.Now().UTC()
	s.byTenant[sub.TenantID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTenant = make(map[string]*subscription.Subscription)
}
