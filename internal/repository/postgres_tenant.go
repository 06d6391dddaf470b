package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reportloop/reportloop/internal/domain/tenant"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
)

type tenantRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewTenantRepository(db postgres.IClient, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, plan_id, external_customer_id, status, created_at, updated_at)
		VALUES (:id, :name, :plan_id, :external_customer_id, :status, :created_at, :updated_at)
	`
	if _, err := r.db.DB().NamedExecContext(ctx, query, t); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A tenant with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create tenant").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	query := `
		SELECT id, name, plan_id, external_customer_id, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	var t tenant.Tenant
	if err := r.db.DB().GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("tenant not found").
				WithHintf("Tenant %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to load tenant").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

func (r *tenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE tenants
		SET name = :name,
			plan_id = :plan_id,
			external_customer_id = :external_customer_id,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.DB().NamedExecContext(ctx, query, t)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tenant").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("tenant not found").
			WithHintf("Tenant %s does not exist", t.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	query := `
		SELECT id, name, plan_id, external_customer_id, status, created_at, updated_at
		FROM tenants
		ORDER BY created_at DESC
	`
	tenants := make([]*tenant.Tenant, 0)
	if err := r.db.DB().SelectContext(ctx, &tenants, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tenants").
			Mark(ierr.ErrDatabase)
	}
	return tenants, nil
}
