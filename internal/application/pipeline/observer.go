// Package pipeline implements the detection cycle stages: observer, causal
// reasoner, investigator, verifier, policy engine, remediation engine,
// escalator, historian and meta-learner, coordinated by the orchestrator.
// Each stage is a small service wired by constructor injection.
package pipeline

import (
	"context"
	"fmt"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// Observation is the observer stage output: the raw snapshot plus every
// threshold crossing found in it.
type Observation struct {
	Package models.ObservationPackage
	Signals []models.AnomalySignal
}

// Observer scans the tenant's monitored tables and grades each metric against
// the tenant's schema-driven thresholds. One unreadable table is logged and
// skipped; only a fully unavailable source aborts the cycle.
type Observer struct {
	source    service.MetricsSource
	auditRepo repository.AuditRepository
	logger    logger.Logger
}

// NewObserver creates the observer stage.
func NewObserver(source service.MetricsSource, auditRepo repository.AuditRepository, log logger.Logger) *Observer {
	return &Observer{
		source:    source,
		auditRepo: auditRepo,
		logger:    log.WithComponent("observer"),
	}
}

// WithSource returns a copy of the observer reading from a different metrics
// source. Used for failure drills: the drill cycle scans synthetic defect data
// while the regular observer keeps its production source.
func (o *Observer) WithSource(source service.MetricsSource) *Observer {
	clone := *o
	clone.source = source
	return &clone
}

// Observe snapshots the tenant's tables and evaluates thresholds.
func (o *Observer) Observe(ctx context.Context, tenant *models.Tenant) (*Observation, error) {
	tables := tenant.Config.MonitoredTables
	if len(tables) == 0 {
		tables = []string{"orders", "users", "inventory"}
	}

	pkg, err := o.source.Snapshot(ctx, tenant, tables)
	if err != nil {
		return nil, errors.ErrSourceUnavailable("metrics source", err)
	}
	if len(pkg.Tables) > 0 && len(pkg.SkippedSources) == len(pkg.Tables) {
		return nil, errors.ErrSourceUnavailable("metrics source",
			fmt.Errorf("all %d monitored tables unreadable", len(pkg.Tables)))
	}

	for _, skipped := range pkg.SkippedSources {
		o.logger.Warn(ctx, "Table skipped during scan",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("table", skipped),
		)
	}

	// Recent externally reported pipeline failures become triage context.
	if o.auditRepo != nil {
		if events, err := o.auditRepo.RecentPipelineEvents(ctx, tenant.TenantID, 10); err == nil {
			for _, ev := range events {
				if ev.Status != constants.PipelineRunFailed {
					continue
				}
				pkg.RecentEvents = append(pkg.RecentEvents, models.ChangeEvent{
					Kind:   "pipeline_run",
					Source: ev.Pipeline,
					Detail: ev.Detail,
					Status: ev.Status,
					At:     ev.ReportedAt,
				})
			}
		}
	}

	obs := &Observation{Package: pkg}
	for _, table := range pkg.Tables {
		if table.SkipError != "" {
			continue
		}
		obs.Signals = append(obs.Signals, o.evaluateTable(tenant, table)...)
	}

	o.logger.Info(ctx, "Observation completed",
		logger.String("tenant_id", tenant.TenantID),
		logger.Int("tables", len(pkg.Tables)),
		logger.Int("skipped", len(pkg.SkippedSources)),
		logger.Int("signals", len(obs.Signals)),
	)
	return obs, nil
}

// evaluateTable applies the tenant's thresholds to one table's metrics.
func (o *Observer) evaluateTable(tenant *models.Tenant, m models.TableMetrics) []models.AnomalySignal {
	thresholds := tenant.TableThresholds(m.Table)
	var signals []models.AnomalySignal

	for _, col := range m.Columns {
		baseline := m.BaselineNullRates[col.Name]
		delta := col.NullRate - baseline
		if delta <= thresholds.NullRateDeltaThreshold {
			continue
		}
		severity := constants.SeverityMedium
		if delta > 2*thresholds.NullRateDeltaThreshold {
			severity = constants.SeverityHigh
		}
		signals = append(signals, models.AnomalySignal{
			Source:   m.Table + "." + col.Name,
			Metric:   "null_rate",
			Observed: col.NullRate,
			Baseline: baseline,
			Severity: severity,
			Detail: fmt.Sprintf("null rate %.3f exceeds baseline %.3f by more than %.3f",
				col.NullRate, baseline, thresholds.NullRateDeltaThreshold),
		})
	}

	if m.BaselineRowCount > 0 {
		drop := float64(m.BaselineRowCount-m.RowCount) / float64(m.BaselineRowCount)
		if drop > thresholds.RowCountDropRatio {
			signals = append(signals, models.AnomalySignal{
				Source:   m.Table,
				Metric:   "row_count",
				Observed: float64(m.RowCount),
				Baseline: float64(m.BaselineRowCount),
				Severity: constants.SeverityHigh,
				Detail: fmt.Sprintf("row count dropped %.0f%% against baseline %d",
					drop*100, m.BaselineRowCount),
			})
		}
	}

	if m.FreshnessMinutes > thresholds.ExpectedFreshnessMinutes {
		severity := constants.SeverityMedium
		if m.FreshnessMinutes > 4*thresholds.ExpectedFreshnessMinutes {
			severity = constants.SeverityHigh
		}
		signals = append(signals, models.AnomalySignal{
			Source:   m.Table,
			Metric:   "freshness",
			Observed: float64(m.FreshnessMinutes),
			Baseline: float64(thresholds.ExpectedFreshnessMinutes),
			Severity: severity,
			Detail: fmt.Sprintf("newest data is %d minutes old, expected within %d minutes",
				m.FreshnessMinutes, thresholds.ExpectedFreshnessMinutes),
		})
	}

	return signals
}
