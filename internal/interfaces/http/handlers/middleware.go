package handlers

import (
	goerrors "errors"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// Middleware bundles the HTTP middleware chain.
type Middleware struct {
	logger      logger.Logger
	adminJWTKey string
}

// NewMiddleware creates the middleware set.
func NewMiddleware(log logger.Logger, adminJWTKey string) *Middleware {
	return &Middleware{
		logger:      log.WithComponent("http"),
		adminJWTKey: adminJWTKey,
	}
}

// RequestID assigns each request a unique identifier.
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Tenant resolves the tenant from the X-Tenant-ID header, falling back to the
// reserved demo tenant when the header is absent.
func (m *Middleware) Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(constants.TenantIDHeader)
		if tenant == "" {
			tenant = constants.DefaultTenantID
		}
		c.Set("tenant_id", tenant)

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyTenantID, tenant)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger logs every processed request.
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		m.logger.Info(c.Request.Context(), "Request processed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Int64("latency_ms", latency.Milliseconds()),
			logger.String("tenant_id", c.GetString("tenant_id")),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery converts panics into structured 500 responses.
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error(c.Request.Context(), "Panic recovered", goerrors.New("panic"),
					logger.Any("panic", rec),
					logger.String("path", c.Request.URL.Path),
				)
				respondError(c, errors.ErrServerError("internal error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Tracing opens a server span per request and exposes the trace ID.
func (m *Middleware) Tracing() gin.HandlerFunc {
	tracer := otel.Tracer("sentra/http")
	propagator := propagation.TraceContext{}
	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method,
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPURLKey.String(c.Request.URL.String()),
			),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		c.Set("trace_id", span.SpanContext().TraceID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminAuth guards mutating admin endpoints with an HMAC-signed JWT. With no
// key configured the guard is disabled (development mode).
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.adminJWTKey == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, goerrors.New("unexpected signing method")
			}
			return []byte(m.adminJWTKey), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
