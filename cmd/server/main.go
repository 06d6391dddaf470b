package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/reportloop/reportloop/internal/api"
	v1 "github.com/reportloop/reportloop/internal/api/v1"
	"github.com/reportloop/reportloop/internal/billing"
	"github.com/reportloop/reportloop/internal/cache"
	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/httpclient"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/metrics"
	"github.com/reportloop/reportloop/internal/postgres"
	"github.com/reportloop/reportloop/internal/repository"
	"github.com/reportloop/reportloop/internal/service"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	// Optional .env for local development
	_ = godotenv.Load()
}

func main() {
	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Metrics
			provideRegistry,
			provideMetrics,

			// Postgres
			postgres.NewClient,
			repository.NewRepositories,

			// Provider gateway
			provideHTTPClient,
			provideEndpointResolver,
			provideGateway,

			// Services
			provideServiceParams,
			service.NewSubscriptionService,
			service.NewWebhookService,
			service.NewEntitlementService,
			service.NewBillingService,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideMetrics(registry *prometheus.Registry) *metrics.BillingMetrics {
	return metrics.NewBillingMetrics(registry)
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	return httpclient.NewDefaultClient(cfg.Billing.HTTPTimeout)
}

func provideEndpointResolver(
	client httpclient.Client,
	cfg *config.Configuration,
	log *logger.Logger,
) *billing.EndpointResolver {
	return billing.NewEndpointResolver(client, cfg.Billing, log)
}

func provideGateway(
	resolver *billing.EndpointResolver,
	cfg *config.Configuration,
	repos *repository.Repositories,
	log *logger.Logger,
) *billing.Gateway {
	return billing.NewGateway(resolver, cfg.Billing, repos.Tenant, repos.Subscription, repos.WebhookEvent, log)
}

func provideServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	cache cache.Cache,
	billingMetrics *metrics.BillingMetrics,
	repos *repository.Repositories,
	client httpclient.Client,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		Cache:            cache,
		Metrics:          billingMetrics,
		TenantRepo:       repos.Tenant,
		PlanRepo:         repos.Plan,
		SubRepo:          repos.Subscription,
		UsageRepo:        repos.Usage,
		WebhookEventRepo: repos.WebhookEvent,
		Client:           client,
	}
}

func provideHandlers(
	log *logger.Logger,
	webhookService service.WebhookService,
	billingService service.BillingService,
	entitlementService service.EntitlementService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(log),
		Webhook:     v1.NewWebhookHandler(webhookService, log),
		Billing:     v1.NewBillingHandler(billingService, log),
		Entitlement: v1.NewEntitlementHandler(entitlementService, log),
	}
}

func provideRouter(
	handlers api.Handlers,
	cfg *config.Configuration,
	registry *prometheus.Registry,
) *gin.Engine {
	return api.NewRouter(handlers, cfg, registry)
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	db postgres.IClient,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			db.Close()
			return nil
		},
	})
}
