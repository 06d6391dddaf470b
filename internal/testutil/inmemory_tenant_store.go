package testutil

import (
	"context"
	"time"

	"github.com/reportloop/reportloop/internal/domain/tenant"
	ierr "github.com/reportloop/reportloop/internal/errors"
)

type InMemoryTenantStore struct {
	*InMemoryStore[*tenant.Tenant]
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		InMemoryStore: NewInMemoryStore[*tenant.Tenant](),
	}
}

func (s *InMemoryTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ierr.NewError("tenant cannot be nil").
			Mark(ierr.ErrValidation)
	}

	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Create(ctx, t.ID, t)
}

func (s *InMemoryTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTenantStore) Update(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ierr.NewError("tenant cannot be nil").
			Mark(ierr.ErrValidation)
	}

	t.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, t.ID, t)
}

func (s *InMemoryTenantStore) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *tenant.Tenant) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}
