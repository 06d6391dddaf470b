package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reportloop/reportloop/internal/domain/plan"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
)

type planRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPlanRepository(db postgres.IClient, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (id, name, lookup_key, price_ref, max_reports_per_month, max_clients, max_data_sources, created_at, updated_at)
		VALUES (:id, :name, :lookup_key, :price_ref, :max_reports_per_month, :max_clients, :max_data_sources, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.DB().NamedExecContext(ctx, query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	query := `
		SELECT id, name, lookup_key, price_ref, max_reports_per_month, max_clients, max_data_sources, created_at, updated_at
		FROM plans
		WHERE id = $1
	`
	var p plan.Plan
	if err := r.db.DB().GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) GetByLookupKey(ctx context.Context, lookupKey string) (*plan.Plan, error) {
	query := `
		SELECT id, name, lookup_key, price_ref, max_reports_per_month, max_clients, max_data_sources, created_at, updated_at
		FROM plans
		WHERE lookup_key = $1
	`
	var p plan.Plan
	if err := r.db.DB().GetContext(ctx, &p, query, lookupKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with lookup key %s does not exist", lookupKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	query := `
		SELECT id, name, lookup_key, price_ref, max_reports_per_month, max_clients, max_data_sources, created_at, updated_at
		FROM plans
		ORDER BY created_at ASC
	`
	plans := make([]*plan.Plan, 0)
	if err := r.db.DB().SelectContext(ctx, &plans, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}
