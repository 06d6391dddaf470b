package service

import (
	"github.com/reportloop/reportloop/internal/cache"
	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/domain/plan"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	"github.com/reportloop/reportloop/internal/domain/usage"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	"github.com/reportloop/reportloop/internal/httpclient"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/metrics"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	Cache   cache.Cache
	Metrics *metrics.BillingMetrics

	// Repositories
	TenantRepo       tenant.Repository
	PlanRepo         plan.Repository
	SubRepo          subscription.Repository
	UsageRepo        usage.Repository
	WebhookEventRepo webhookevent.Repository

	// http client
	Client httpclient.Client
}
