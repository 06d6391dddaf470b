package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/reportloop/reportloop/internal/api/v1"
	"github.com/reportloop/reportloop/internal/config"
	"github.com/reportloop/reportloop/internal/rest/middleware"
	"github.com/reportloop/reportloop/internal/types"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Webhook     *v1.WebhookHandler
	Billing     *v1.BillingHandler
	Entitlement *v1.EntitlementHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, registry *prometheus.Registry) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Provider callbacks live outside the versioned API; the URL is part of
	// the webhook endpoint configured at the provider.
	router.POST("/webhook", handlers.Webhook.Receive)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	billing := router.Group("/billing")
	{
		billing.POST("/customers", handlers.Billing.CreateCustomer)
		billing.POST("/subscriptions", handlers.Billing.CreateSubscription)
		billing.GET("/subscriptions/current", handlers.Billing.GetCurrentSubscription)
		billing.GET("/events", handlers.Billing.ListWebhookEvents)
	}

	entitlements := router.Group("/entitlements")
	{
		entitlements.GET("/check", handlers.Entitlement.CheckUsage)
	}

	usage := router.Group("/usage")
	{
		usage.POST("/increment", handlers.Entitlement.IncrementUsage)
	}
}
