package testutil

import (
	"context"
	"time"

	"github.com/reportloop/reportloop/internal/domain/plan"
	ierr "github.com/reportloop/reportloop/internal/errors"
)

type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			Mark(ierr.ErrValidation)
	}

	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPlanStore) GetByLookupKey(ctx context.Context, lookupKey string) (*plan.Plan, error) {
	plans, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *plan.Plan, _ interface{}) bool {
		return p.LookupKey == lookupKey
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHintf("No plan with lookup key %s", lookupKey).
			Mark(ierr.ErrNotFound)
	}
	return plans[0], nil
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *plan.Plan) bool {
		return i.ID < j.ID
	})
}
