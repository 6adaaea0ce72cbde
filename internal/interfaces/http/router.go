// Package http wires the Gin router for the Sentra API surface.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/interfaces/http/handlers"
	"github.com/turtacn/sentra/pkg/logger"
)

// Router assembles the HTTP server.
type Router struct {
	engine          *gin.Engine
	config          *config.Config
	logger          logger.Logger
	middleware      *handlers.Middleware
	healthHandler   *handlers.HealthHandler
	cycleHandler    *handlers.CycleHandler
	incidentHandler *handlers.IncidentHandler
	policyHandler   *handlers.PolicyHandler
	approvalHandler *handlers.ApprovalHandler
	tenantHandler   *handlers.TenantHandler
	streamHandler   *handlers.StreamHandler
	server          *http.Server
	routesSet       bool
}

// NewRouter creates the router.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	middleware *handlers.Middleware,
	healthHandler *handlers.HealthHandler,
	cycleHandler *handlers.CycleHandler,
	incidentHandler *handlers.IncidentHandler,
	policyHandler *handlers.PolicyHandler,
	approvalHandler *handlers.ApprovalHandler,
	tenantHandler *handlers.TenantHandler,
	streamHandler *handlers.StreamHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:          gin.New(),
		config:          cfg,
		logger:          log,
		middleware:      middleware,
		healthHandler:   healthHandler,
		cycleHandler:    cycleHandler,
		incidentHandler: incidentHandler,
		policyHandler:   policyHandler,
		approvalHandler: approvalHandler,
		tenantHandler:   tenantHandler,
		streamHandler:   streamHandler,
	}
}

// SetupRoutes registers middleware and routes. Safe to call more than once.
func (r *Router) SetupRoutes() {
	if r.routesSet {
		return
	}
	r.routesSet = true

	r.engine.Use(r.middleware.Recovery())
	r.engine.Use(r.middleware.RequestID())
	r.engine.Use(r.middleware.Tracing())
	r.engine.Use(r.middleware.Tenant())
	r.engine.Use(r.middleware.Logger())

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/cycles", r.cycleHandler.TriggerCycle)
		v1.POST("/events/pipeline", r.cycleHandler.ReportPipelineEvent)
		v1.GET("/events/stream", r.streamHandler.Stream)

		incidents := v1.Group("/incidents")
		{
			incidents.GET("", r.incidentHandler.List)
			incidents.GET("/stats", r.incidentHandler.Stats)
			incidents.GET("/mttr", r.incidentHandler.MTTR)
			incidents.GET("/trends", r.incidentHandler.Trends)
			incidents.GET("/:incident_id", r.incidentHandler.Get)
			incidents.POST("/:incident_id/archive", r.incidentHandler.Archive)
			incidents.DELETE("/:incident_id", r.incidentHandler.Delete)
			incidents.POST("/bulk/archive", r.incidentHandler.BulkArchive)
			incidents.POST("/bulk/delete", r.incidentHandler.BulkDelete)
		}

		v1.GET("/dashboard", r.incidentHandler.Dashboard)

		policies := v1.Group("/policies")
		{
			policies.GET("", r.policyHandler.List)
			policies.PUT("", r.policyHandler.Upsert)
			policies.GET("/:policy_id", r.policyHandler.Get)
			policies.DELETE("/:policy_id", r.policyHandler.Delete)
		}

		approvals := v1.Group("/approvals")
		{
			approvals.GET("", r.approvalHandler.ListPending)
			approvals.GET("/:token_id", r.approvalHandler.Get)
			approvals.POST("/:token_id/decide", r.approvalHandler.Decide)
		}

		// Tenant administration requires the admin credential when one is
		// configured.
		tenants := v1.Group("/tenants")
		tenants.Use(r.middleware.AdminAuth())
		{
			tenants.POST("", r.tenantHandler.Create)
			tenants.GET("", r.tenantHandler.List)
			tenants.GET("/:tenant_id", r.tenantHandler.Get)
			tenants.PUT("/:tenant_id/config", r.tenantHandler.UpdateConfig)
			tenants.PUT("/:tenant_id/status", r.tenantHandler.UpdateStatus)
			tenants.DELETE("/:tenant_id", r.tenantHandler.Delete)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start runs the HTTP server until Stop is called.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the underlying Gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	r.SetupRoutes()
	return r.engine
}
