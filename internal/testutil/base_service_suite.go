package testutil

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/reportloop/reportloop/internal/cache"
	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/domain/plan"
	"github.com/reportloop/reportloop/internal/domain/subscription"
	"github.com/reportloop/reportloop/internal/domain/tenant"
	"github.com/reportloop/reportloop/internal/domain/usage"
	"github.com/reportloop/reportloop/internal/domain/webhookevent"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/metrics"
	"github.com/reportloop/reportloop/internal/types"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	TenantRepo       tenant.Repository
	PlanRepo         plan.Repository
	SubRepo          subscription.Repository
	UsageRepo        usage.Repository
	WebhookEventRepo webhookevent.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	cache   cache.Cache
	metrics *metrics.BillingMetrics
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache()
	// a fresh registry per test keeps counters isolated and avoids
	// duplicate registration
	s.metrics = metrics.NewBillingMetrics(prometheus.NewRegistry())
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		TenantRepo:       NewInMemoryTenantStore(),
		PlanRepo:         NewInMemoryPlanStore(),
		SubRepo:          NewInMemorySubscriptionStore(),
		UsageRepo:        NewInMemoryUsageStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.TenantRepo.(*InMemoryTenantStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.SubRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.UsageRepo.(*InMemoryUsageStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetMetrics returns the per-test metrics
func (s *BaseServiceTestSuite) GetMetrics() *metrics.BillingMetrics {
	return s.metrics
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
