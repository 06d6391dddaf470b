package usage

import (
	"context"

	"github.com/reportloop/reportloop/internal/types"
)

type Repository interface {
	// GetForMonth returns the usage record for the given month bucket, or
	// ErrNotFound when the tenant has no usage yet that month.
	GetForMonth(ctx context.Context, tenantID, monthKey string) (*UsageRecord, error)

	// Increment atomically adds amount to the named counter, creating the
	// month's row if absent. The add must be a single read-modify-write at
	// the storage layer; concurrent callers must not lose updates.
	Increment(ctx context.Context, tenantID, monthKey string, counter types.UsageCounter, amount int64) error
}
