package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/pkg/errors"
)

// traceID extracts the request trace ID placed by the tracing middleware.
func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

// tenantID extracts the tenant placed by the tenant middleware.
func tenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// respondOK writes a success envelope.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceID(c)))
}

// respondError maps a domain error onto its HTTP status and writes the
// error envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if serr, ok := errors.AsSentraError(err); ok {
		status = serr.HTTPStatus()
	}
	c.JSON(status, dto.ErrorResponse(err, traceID(c)))
}
