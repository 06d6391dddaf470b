package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/logger"
	"github.com/reportloop/reportloop/internal/service"
	"github.com/reportloop/reportloop/internal/types"
)

type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// @Summary Receive a billing provider webhook
// @Description Verifies the signature, dedupes and applies the event
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResult
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	// The signature covers the raw bytes, so the body must not be parsed
	// or re-encoded before verification.
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(types.WebhookSignatureHeader)

	result, err := h.service.ProcessWebhook(c.Request.Context(), rawBody, signature)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
