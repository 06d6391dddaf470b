package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reportloop/reportloop/internal/api/dto"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/service"
)

type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

func NewEntitlementHandler(service service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{service: service, log: log}
}

// @Summary Check whether the tenant may perform billable actions
// @Description Evaluates subscription state and plan limits for the current month
// @Tags Entitlements
// @Produce json
// @Param tenant_id query string false "Tenant ID (defaults to X-Tenant-ID header)"
// @Success 200 {object} dto.EntitlementDecision
// @Router /v1/entitlements/check [get]
func (h *EntitlementHandler) CheckUsage(c *gin.Context) {
	tenantID, err := resolveTenant(c)
	if err != nil {
		c.Error(err)
		return
	}

	decision, err := h.service.CheckUsage(c.Request.Context(), tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// @Summary Record usage for a tenant
// @Description Atomically adds to the tenant's counters for the current month
// @Tags Entitlements
// @Accept json
// @Produce json
// @Param request body dto.IncrementUsageRequest true "Usage increment"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/usage/increment [post]
func (h *EntitlementHandler) IncrementUsage(c *gin.Context) {
	var req dto.IncrementUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.IncrementUsage(c.Request.Context(), req); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
