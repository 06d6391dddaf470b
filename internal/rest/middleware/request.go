package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reportloop/reportloop/internal/types"
)

// RequestIDMiddleware attaches a request id and any caller-supplied tenant
// id to the request context.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = types.SetRequestID(ctx, requestID)

	if tenantID := c.GetHeader(types.HeaderTenantID); tenantID != "" {
		ctx = types.SetTenantID(ctx, tenantID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
