package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reportloop/reportloop/internal/domain/usage"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
	"github.com/reportloop/reportloop/internal/types"
)

type usageRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewUsageRepository(db postgres.IClient, logger *logger.Logger) usage.Repository {
	return &usageRepository{db: db, logger: logger}
}

// counterColumns maps counters to their columns. The column name is
// interpolated into SQL, so it must come from this map and never from
// caller input.
var counterColumns = map[types.UsageCounter]string{
	types.UsageCounterReports:     "reports_sent",
	types.UsageCounterClients:     "client_count",
	types.UsageCounterDataSources: "data_sources_connected",
}

func (r *usageRepository) GetForMonth(ctx context.Context, tenantID, monthKey string) (*usage.UsageRecord, error) {
	query := `
		SELECT id, tenant_id, month_key, reports_sent, client_count, data_sources_connected, status, created_at, updated_at
		FROM usage_records
		WHERE tenant_id = $1 AND month_key = $2
	`
	var u usage.UsageRecord
	if err := r.db.DB().GetContext(ctx, &u, query, tenantID, monthKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("usage record not found").
				WithHintf("Tenant %s has no usage for %s", tenantID, monthKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load usage record").
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}

// Increment is a single atomic read-modify-write: the month row is created
// on first use and the counter added to under the row lock postgres takes
// for the conflict update. Concurrent increments serialize at the storage
// layer instead of losing updates.
func (r *usageRepository) Increment(ctx context.Context, tenantID, monthKey string, counter types.UsageCounter, amount int64) error {
	column, ok := counterColumns[counter]
	if !ok {
		return ierr.NewError("unknown usage counter").
			WithHintf("Counter %s is not tracked", counter).
			Mark(ierr.ErrValidation)
	}

	query := fmt.Sprintf(`
		INSERT INTO usage_records (id, tenant_id, month_key, %s, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (tenant_id, month_key) DO UPDATE SET
			%s = usage_records.%s + EXCLUDED.%s,
			updated_at = EXCLUDED.updated_at
	`, column, column, column, column)

	now := time.Now().UTC()
	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD)

	if _, err := r.db.DB().ExecContext(ctx, query, id, tenantID, monthKey, amount, types.StatusPublished, now); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to increment usage").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
