// Package metricsource provides the MetricsSource implementations: a
// scenario-driven simulated source for development and tests, and a pgx-based
// warehouse source for production deployments.
package metricsource

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// Scenario selects the synthetic data-quality situation the simulated source
// reproduces.
type Scenario string

const (
	// ScenarioHealthy produces metrics inside every threshold.
	ScenarioHealthy Scenario = "healthy"

	// ScenarioNullSpike reproduces an ETL field-mapping regression: the
	// orders.user_id null rate jumps from the 0.05 baseline to 0.50.
	ScenarioNullSpike Scenario = "null_spike"

	// ScenarioStaleData reproduces a dead ingestion job: inventory data is
	// two days old against a minutes-level freshness expectation.
	ScenarioStaleData Scenario = "stale_data"

	// ScenarioSourceDown makes one table unreadable so the scan exercises
	// skip-and-continue.
	ScenarioSourceDown Scenario = "source_down"
)

// SimulatedSource produces deterministic synthetic observations. Every
// Snapshot builds fresh values; callers can mutate the result without
// affecting later cycles.
type SimulatedSource struct {
	scenario Scenario
	logger   logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewSimulatedSource creates a simulated source for the given scenario.
func NewSimulatedSource(scenario Scenario, log logger.Logger) *SimulatedSource {
	if scenario == "" {
		scenario = ScenarioNullSpike
	}
	return &SimulatedSource{
		scenario: scenario,
		logger:   log,
		now:      time.Now,
	}
}

var _ service.MetricsSource = (*SimulatedSource)(nil)

// SetClock overrides the time source. Test hook.
func (s *SimulatedSource) SetClock(now func() time.Time) {
	s.now = now
}

// Snapshot builds a fresh ObservationPackage for the tenant's monitored
// tables. Unknown tables get healthy defaults; a scenario marks its target
// table with the configured defect.
func (s *SimulatedSource) Snapshot(ctx context.Context, tenant *models.Tenant, tables []string) (models.ObservationPackage, error) {
	now := s.now().UTC()
	pkg := models.ObservationPackage{
		TenantID:   tenant.TenantID,
		ObservedAt: now,
	}

	for _, table := range tables {
		if s.scenario == ScenarioSourceDown && table == "users" {
			pkg.SkippedSources = append(pkg.SkippedSources, table)
			pkg.Tables = append(pkg.Tables, models.TableMetrics{
				Table:     table,
				SkipError: "connection refused",
			})
			s.logger.Warn(ctx, "Simulated source unavailable",
				logger.String("tenant_id", tenant.TenantID),
				logger.String("table", table),
			)
			continue
		}
		pkg.Tables = append(pkg.Tables, s.tableMetrics(table))
	}

	pkg.RecentEvents = s.recentEvents(now)
	return pkg, nil
}

func (s *SimulatedSource) tableMetrics(table string) models.TableMetrics {
	switch table {
	case "orders":
		m := models.TableMetrics{
			Table:            table,
			RowCount:         124_530,
			BaselineRowCount: 123_900,
			FreshnessMinutes: 4,
			Columns: []models.ColumnStats{
				{Name: "order_id", NullRate: 0.0, Type: "bigint"},
				{Name: "user_id", NullRate: 0.05, Type: "bigint"},
				{Name: "total_cents", NullRate: 0.01, Type: "bigint"},
				{Name: "created_at", NullRate: 0.0, Type: "timestamptz"},
			},
			BaselineNullRates: map[string]float64{
				"order_id":    0.0,
				"user_id":     0.05,
				"total_cents": 0.01,
				"created_at":  0.0,
			},
		}
		if s.scenario == ScenarioNullSpike {
			m.Columns[1].NullRate = 0.50
		}
		return m

	case "inventory":
		m := models.TableMetrics{
			Table:            table,
			RowCount:         8_912,
			BaselineRowCount: 8_870,
			FreshnessMinutes: 9,
			Columns: []models.ColumnStats{
				{Name: "sku", NullRate: 0.0, Type: "text"},
				{Name: "quantity", NullRate: 0.0, Type: "integer"},
				{Name: "updated_at", NullRate: 0.0, Type: "timestamptz"},
			},
			BaselineNullRates: map[string]float64{
				"sku":        0.0,
				"quantity":   0.0,
				"updated_at": 0.0,
			},
		}
		if s.scenario == ScenarioStaleData {
			m.FreshnessMinutes = 2880
		}
		return m

	case "users":
		return models.TableMetrics{
			Table:            table,
			RowCount:         45_021,
			BaselineRowCount: 44_980,
			FreshnessMinutes: 2,
			Columns: []models.ColumnStats{
				{Name: "id", NullRate: 0.0, Type: "bigint"},
				{Name: "email", NullRate: 0.002, Type: "text"},
				{Name: "created_at", NullRate: 0.0, Type: "timestamptz"},
			},
			BaselineNullRates: map[string]float64{
				"id":         0.0,
				"email":      0.002,
				"created_at": 0.0,
			},
		}

	default:
		return models.TableMetrics{
			Table:            table,
			RowCount:         1_000,
			BaselineRowCount: 1_000,
			FreshnessMinutes: 5,
			Columns: []models.ColumnStats{
				{Name: "id", NullRate: 0.0, Type: "bigint"},
			},
			BaselineNullRates: map[string]float64{"id": 0.0},
		}
	}
}

func (s *SimulatedSource) recentEvents(now time.Time) []models.ChangeEvent {
	switch s.scenario {
	case ScenarioNullSpike:
		return []models.ChangeEvent{
			{
				Kind:   "deploy",
				Source: "etl-orders",
				Detail: "release v2.14.0 of the orders ingestion job",
				At:     now.Add(-35 * time.Minute),
			},
			{
				Kind:   "pipeline_run",
				Source: "orders_ingest",
				Detail: fmt.Sprintf("nightly load finished at %s", now.Add(-20*time.Minute).Format(time.RFC3339)),
				At:     now.Add(-20 * time.Minute),
			},
		}
	case ScenarioStaleData:
		return []models.ChangeEvent{
			{
				Kind:   "pipeline_run",
				Source: "inventory_sync",
				Detail: "last successful sync two days ago",
				At:     now.Add(-48 * time.Hour),
			},
		}
	default:
		return nil
	}
}
