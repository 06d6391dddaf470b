package repository

import (
	"github.com/reportloop/reportloop/internal/domain/plan"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	"github.com/reportloop/reportloop/internal/domain/usage"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/postgres"
)

// Repositories bundles the postgres-backed repository implementations
type Repositories struct {
	Tenant       tenant.Repository
	Plan         plan.Repository
	Subscription subscription.Repository
	Usage        usage.Repository
	WebhookEvent webhookevent.Repository
}

// NewRepositories wires all repositories onto one postgres client
func NewRepositories(db postgres.IClient, logger *logger.Logger) *Repositories {
	return &Repositories{
		Tenant:       NewTenantRepository(db, logger),
		Plan:         NewPlanRepository(db, logger),
		Subscription: NewSubscriptionRepository(db, logger),
		Usage:        NewUsageRepository(db, logger),
		WebhookEvent: NewWebhookEventRepository(db, logger),
	}
}
