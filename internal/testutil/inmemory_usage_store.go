package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/reportloop/reportloop/internal/domain/usage"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

// InMemoryUsageStore keys records by (tenant, month) and performs increments
// under the store lock, matching the atomicity the postgres upsert-add gives.
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string]*usage.UsageRecord
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		records: make(map[string]*usage.UsageRecord),
	}
}

func usageKey(tenantID, monthKey string) string {
	return tenantID + "/" + monthKey
}

func (s *InMemoryUsageStore) GetForMonth(ctx context.Context, tenantID, monthKey string) (*usage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[usageKey(tenantID, monthKey)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, ierr.NewError("usage record not found").
		WithHintf("No usage for tenant %s in %s", tenantID, monthKey).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryUsageStore) Increment(ctx context.Context, tenantID, monthKey string, counter types.UsageCounter, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey(tenantID, monthKey)
	rec, ok := s.records[key]
	if !ok {
		rec = &usage.UsageRecord{
			ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
			MonthKey: monthKey,
		}
		rec.TenantID = tenantID
		rec.Status = types.StatusPublished
		rec.CreatedAt = time.Now().UTC()
		s.records[key] = rec
	}

	switch counter {
	case types.UsageCounterReports:
		rec.ReportsSent += amount
	case types.UsageCounterClients:
		rec.ClientCount += amount
	case types.UsageCounterDataSources:
		rec.DataSourcesConnected += amount
	default:
		return ierr.NewError("unknown usage counter").
			WithHintf("Counter %s is not tracked", counter).
			Mark(ierr.ErrValidation)
	}

	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*usage.UsageRecord)
}
