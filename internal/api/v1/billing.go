package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reportloop/reportloop/internal/api/dto"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/service"
	"github.com/reportloop/reportloop/internal/types"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{service: service, log: log}
}

// @Summary Create a billing customer
// @Description Registers the tenant with the billing provider
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Create customer request"
// @Success 201 {object} dto.CreateCustomerResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /v1/billing/customers [post]
func (h *BillingHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Create a subscription
// @Description Creates a provider subscription for the tenant's plan
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.CreateSubscriptionRequest true "Create subscription request"
// @Success 201 {object} dto.CreateSubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 412 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /v1/billing/subscriptions [post]
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateSubscription(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get the tenant's current subscription
// @Tags Billing
// @Produce json
// @Param tenant_id query string false "Tenant ID (defaults to X-Tenant-ID header)"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/billing/subscriptions/current [get]
func (h *BillingHandler) GetCurrentSubscription(c *gin.Context) {
	tenantID, err := resolveTenant(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.GetCurrentSubscription(c.Request.Context(), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List received webhook events for a tenant
// @Tags Billing
// @Produce json
// @Param tenant_id query string false "Tenant ID (defaults to X-Tenant-ID header)"
// @Param limit query int false "Max events to return"
// @Success 200 {object} dto.ListWebhookEventsResponse
// @Router /v1/billing/events [get]
func (h *BillingHandler) ListWebhookEvents(c *gin.Context) {
	tenantID, err := resolveTenant(c)
	if err != nil {
		c.Error(err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.Error(ierr.NewError("invalid limit").
				WithHint("limit must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.ListWebhookEvents(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// resolveTenant prefers the explicit query param and falls back to the
// tenant id the middleware put on the context from X-Tenant-ID.
func resolveTenant(c *gin.Context) (string, error) {
	if tenantID := c.Query("tenant_id"); tenantID != "" {
		return tenantID, nil
	}
	if tenantID := types.GetTenantID(c.Request.Context()); tenantID != "" {
		return tenantID, nil
	}
	return "", ierr.NewError("missing tenant id").
		WithHint("Provide tenant_id or the X-Tenant-ID header").
		Mark(ierr.ErrValidation)
}
