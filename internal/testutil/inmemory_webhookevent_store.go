package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	ierr "github.com/reportloop/reportloop/internal/errors"
)

// InMemoryWebhookEventStore enforces event id uniqueness under the store
// lock so concurrent inserts of the same event race the way they do against
// the unique index in postgres: exactly one wins.
type InMemoryWebhookEventStore struct {
	mu       sync.RWMutex
	byEvtID  map[string]*webhookevent.WebhookEvent
	inserted []*webhookevent.WebhookEvent
}

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		byEvtID: make(map[string]*webhookevent.WebhookEvent),
	}
}

func (s *InMemoryWebhookEventStore) Insert(ctx context.Context, e *webhookevent.WebhookEvent) error {
	if e == nil {
		return ierr.NewError("event cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEvtID[e.EventID]; exists {
		return ierr.NewError("event already processed").
			WithHint("Event was already processed").
			Mark(ierr.ErrAlreadyExists)
	}

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	s.byEvtID[e.EventID] = e
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *InMemoryWebhookEventStore) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byEvtID[eventID]; ok {
		return e, nil
	}
	return nil, ierr.NewError("webhook event not found").
		WithHintf("No event with id %s", eventID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryWebhookEventStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*webhookevent.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*webhookevent.WebhookEvent, 0)
	for i := len(s.inserted) - 1; i >= 0 && len(events) < limit; i-- {
		if s.inserted[i].TenantID == tenantID {
			events = append(events, s.inserted[i])
		}
	}
	return events, nil
}

// Count returns the number of stored events
func (s *InMemoryWebhookEventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEvtID)
}

func (s *InMemoryWebhookEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEvtID = make(map[string]*webhookevent.WebhookEvent)
	s.inserted = nil
}
