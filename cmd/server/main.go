// Sentra is a multi-tenant incident reliability service for data platforms.
// The server runs the detection pipeline, the admin API, and the meta-learner.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/sentra/internal/application/pipeline"
	appservice "github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/internal/infrastructure/events"
	"github.com/turtacn/sentra/internal/infrastructure/metricsource"
	"github.com/turtacn/sentra/internal/infrastructure/monitoring"
	"github.com/turtacn/sentra/internal/infrastructure/notify"
	"github.com/turtacn/sentra/internal/infrastructure/oracle"
	"github.com/turtacn/sentra/internal/infrastructure/persistence/memstore"
	redisstore "github.com/turtacn/sentra/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sentra/internal/infrastructure/persistence/sqlstore"
	"github.com/turtacn/sentra/internal/infrastructure/playbook"
	"github.com/turtacn/sentra/internal/infrastructure/tools"
	httpiface "github.com/turtacn/sentra/internal/interfaces/http"
	"github.com/turtacn/sentra/internal/interfaces/http/handlers"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sentra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	bootLog := logger.NewDefaultLogger()

	cfg, err := config.LoadConfig(bootLog)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		cleanup, err := monitoring.InitTracer(&cfg.Tracing)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer cleanup()
	}

	metrics := monitoring.NewMetrics()

	// Persistence.
	db, err := sqlstore.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	tenantRepo := sqlstore.NewTenantRepository(db.DB(), log)
	incidentRepo := sqlstore.NewIncidentRepository(db.DB(), log)
	policyRepo := sqlstore.NewPolicyRepository(db.DB(), log)
	approvalRepo := sqlstore.NewApprovalRepository(db.DB(), log)
	insightRepo := sqlstore.NewInsightRepository(db.DB(), log)
	auditRepo := sqlstore.NewAuditRepository(db.DB(), log)

	// Coordination stores: Redis when configured, in-process otherwise.
	var (
		cooldown  service.CooldownStore
		lease     service.CycleLease
		redisConn *redisstore.Connection
	)
	if cfg.Redis.Enabled() {
		redisConn, err = redisstore.NewConnection(ctx, &cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisConn.Close()
		cooldown = redisstore.NewCooldownStore(redisConn.Client(), log)
		lease = redisstore.NewCycleLease(redisConn.Client(), log)
	} else {
		log.Info(ctx, "Redis not configured, using in-process coordination stores")
		cooldown = memstore.NewCooldownStore()
		lease = memstore.NewCycleLease()
	}

	// Oracle gateway. The API key may come from Vault; without a key the
	// gateway runs on deterministic fallbacks only.
	if cfg.Oracle.APIKey == "" && cfg.Vault.Enabled() {
		key, err := oracle.LoadAPIKeyFromVault(ctx, &cfg.Vault, log)
		if err != nil {
			log.Warn(ctx, "Vault key load failed, oracle runs fallback-only",
				logger.String("error", err.Error()),
			)
		} else {
			cfg.Oracle.APIKey = key
		}
	}
	gateway := oracle.NewGateway(oracle.NewOpenAIClient(&cfg.Oracle, log), &cfg.Oracle, log, metrics)

	// Metrics source.
	var source service.MetricsSource
	switch cfg.Observer.Source {
	case "warehouse":
		pool, err := pgxpool.New(ctx, cfg.Observer.WarehouseDSN)
		if err != nil {
			return fmt.Errorf("connect warehouse: %w", err)
		}
		defer pool.Close()
		source = metricsource.NewWarehouseSource(pool, log)
	default:
		source = metricsource.NewSimulatedSource(metricsource.Scenario(cfg.Observer.Scenario), log)
	}

	// Event fan-out: in-process bus always, Kafka mirror when configured.
	bus := events.NewBus(log)
	publishers := []service.EventPublisher{bus}
	if cfg.Kafka.Enabled() {
		mirror := events.NewKafkaMirror(&cfg.Kafka, log)
		defer mirror.Close()
		publishers = append(publishers, mirror)
	}
	publisher := events.Fanout(publishers)

	// Investigation tools and playbooks.
	registry := tools.NewRegistry(
		tools.NewGitDiffTool(log),
		tools.NewETLMappingTool(log),
		tools.NewBaselineMonitorTool(log),
	)
	executor := playbook.NewExecutor(log)

	// Notification channels.
	channels := []service.NotificationChannel{notify.NewConsoleChannel(log)}
	if cfg.Notification.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlackChannel(cfg.Notification.SlackWebhookURL, log))
	}

	// Pipeline stages.
	observer := pipeline.NewObserver(source, auditRepo, log)
	reasoner := pipeline.NewReasoner(gateway, insightRepo, log)
	investigator := pipeline.NewInvestigator(registry, log)
	verifier := pipeline.NewVerifier(pipeline.NewOracleComparator(gateway, log), log)
	policyEngine := pipeline.NewPolicyEngine(policyRepo, log)
	remediation := pipeline.NewRemediationEngine(gateway, executor, approvalRepo, incidentRepo, cfg.Pipeline.ApprovalTTL, log)
	historian := pipeline.NewHistorian(incidentRepo, metrics, log)
	escalator := pipeline.NewEscalator(channels, cooldown, metrics, log)

	orchestrator := pipeline.NewOrchestrator(
		tenantRepo, auditRepo, observer, reasoner, investigator, verifier,
		policyEngine, remediation, historian, escalator,
		lease, publisher, metrics, log,
	)
	orchestrator.SetFailureSimulator(metricsource.NewSimulatedSource(metricsource.ScenarioNullSpike, log))
	metaLearner := pipeline.NewMetaLearner(incidentRepo, insightRepo, tenantRepo, cfg.Pipeline.MetaLearnInterval, log)

	// Application services.
	tenantService := appservice.NewTenantAppService(tenantRepo, auditRepo, log)
	incidentService := appservice.NewIncidentAppService(incidentRepo, insightRepo, log)
	policyService := appservice.NewPolicyAppService(policyRepo, auditRepo, log)
	approvalService := appservice.NewApprovalAppService(approvalRepo, remediation, auditRepo, log)
	cycleService := appservice.NewCycleAppService(orchestrator, auditRepo, log)

	if err := bootstrap(ctx, cfg, tenantRepo, policyService, log); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	// Background loops.
	go metaLearner.Start(ctx)
	go sweepApprovals(ctx, remediation, log)

	// HTTP server.
	healthChecks := map[string]handlers.Pinger{"database": db}
	if redisConn != nil {
		healthChecks["redis"] = redisConn
	}
	router := httpiface.NewRouter(
		cfg, log,
		handlers.NewMiddleware(log, cfg.Server.AdminJWTKey),
		handlers.NewHealthHandler(healthChecks, log),
		handlers.NewCycleHandler(cycleService, log),
		handlers.NewIncidentHandler(incidentService, log),
		handlers.NewPolicyHandler(policyService, log),
		handlers.NewApprovalHandler(approvalService, log),
		handlers.NewTenantHandler(tenantService, log),
		handlers.NewStreamHandler(bus, log),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := router.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP shutdown failed", err)
	}
	log.Info(shutdownCtx, "Server stopped")
	return nil
}

// bootstrap ensures the demo tenant exists and seeds its policies from the
// configured policy file.
func bootstrap(ctx context.Context, cfg *config.Config, tenantRepo repository.TenantRepository, policies appservice.PolicyAppService, log logger.Logger) error {
	exists, err := tenantRepo.Exists(ctx, constants.DefaultTenantID)
	if err != nil {
		return err
	}
	if !exists {
		demo := models.NewTenant(constants.DefaultTenantID, "Demo Workspace")
		if len(cfg.Pipeline.MonitoredTables) > 0 {
			demo.Config.MonitoredTables = cfg.Pipeline.MonitoredTables
		}
		demo.Config.ConfidenceThreshold = cfg.Pipeline.ConfidenceThreshold
		demo.Config.AlertThreshold = cfg.Pipeline.AlertThreshold
		demo.Config.CooldownWindow = cfg.Pipeline.CooldownWindow
		if len(cfg.Notification.Channels) > 0 {
			demo.Config.Channels = cfg.Notification.Channels
		}
		if err := tenantRepo.Save(ctx, demo); err != nil {
			return err
		}
		log.Info(ctx, "Demo tenant created", logger.String("tenant_id", constants.DefaultTenantID))
	}

	if cfg.Pipeline.PoliciesFile != "" {
		seed, err := config.LoadPoliciesFile(cfg.Pipeline.PoliciesFile)
		if err != nil {
			return err
		}
		if _, err := policies.Seed(ctx, constants.DefaultTenantID, seed); err != nil {
			return err
		}
	}
	return nil
}

// sweepApprovals expires overdue pending approval tokens on a fixed schedule.
func sweepApprovals(ctx context.Context, remediation *pipeline.RemediationEngine, log logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := remediation.SweepExpired(ctx)
			if err != nil {
				log.Error(ctx, "Approval sweep failed", err)
				continue
			}
			if swept > 0 {
				log.Info(ctx, "Expired approval tokens swept", logger.Int64("count", swept))
			}
		}
	}
}
