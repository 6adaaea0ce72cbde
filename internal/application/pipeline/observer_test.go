package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

func observationWith(tables ...models.TableMetrics) models.ObservationPackage {
	pkg := models.ObservationPackage{
		TenantID:   "demo",
		Tables:     tables,
		ObservedAt: time.Now().UTC(),
	}
	for _, t := range tables {
		if t.SkipError != "" {
			pkg.SkippedSources = append(pkg.SkippedSources, t.Table)
		}
	}
	return pkg
}

func TestObserverFlagsNullRateSpike(t *testing.T) {
	source := &fakeMetricsSource{pkg: observationWith(models.TableMetrics{
		Table:    "orders",
		RowCount: 1000, BaselineRowCount: 1000,
		FreshnessMinutes: 5,
		Columns: []models.ColumnStats{
			{Name: "user_id", NullRate: 0.50},
			{Name: "order_id", NullRate: 0.0},
		},
		BaselineNullRates: map[string]float64{"user_id": 0.05, "order_id": 0.0},
	})}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.NoError(t, err)
	require.Len(t, obs.Signals, 1)

	signal := obs.Signals[0]
	assert.Equal(t, "orders.user_id", signal.Source)
	assert.Equal(t, "null_rate", signal.Metric)
	assert.Equal(t, constants.SeverityHigh, signal.Severity)
}

func TestObserverWithinThresholdsProducesNoSignals(t *testing.T) {
	source := &fakeMetricsSource{pkg: observationWith(models.TableMetrics{
		Table:    "orders",
		RowCount: 990, BaselineRowCount: 1000,
		FreshnessMinutes: 5,
		Columns: []models.ColumnStats{
			{Name: "user_id", NullRate: 0.06},
		},
		BaselineNullRates: map[string]float64{"user_id": 0.05},
	})}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.NoError(t, err)
	assert.Empty(t, obs.Signals)
}

func TestObserverFlagsRowCountDropAndFreshness(t *testing.T) {
	source := &fakeMetricsSource{pkg: observationWith(
		models.TableMetrics{
			Table:    "orders",
			RowCount: 300, BaselineRowCount: 1000,
			FreshnessMinutes: 5,
		},
		models.TableMetrics{
			Table:    "inventory",
			RowCount: 100, BaselineRowCount: 100,
			FreshnessMinutes: 2880,
		},
	)}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.NoError(t, err)
	require.Len(t, obs.Signals, 2)

	metrics := map[string]constants.Severity{}
	for _, s := range obs.Signals {
		metrics[s.Metric] = s.Severity
	}
	assert.Equal(t, constants.SeverityHigh, metrics["row_count"])
	// 2880 minutes against a 60 minute default expectation is well past 4x.
	assert.Equal(t, constants.SeverityHigh, metrics["freshness"])
}

func TestObserverUnknownTableGetsFreshnessDefault(t *testing.T) {
	// A table with no explicit configuration still has a freshness
	// expectation; it is never treated as always fresh.
	source := &fakeMetricsSource{pkg: observationWith(models.TableMetrics{
		Table:    "shipments",
		RowCount: 100, BaselineRowCount: 100,
		FreshnessMinutes: constants.DefaultFreshnessMinutes + 30,
	})}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.NoError(t, err)
	require.Len(t, obs.Signals, 1)
	assert.Equal(t, "freshness", obs.Signals[0].Metric)
}

func TestObserverSkipsUnreadableTableAndContinues(t *testing.T) {
	source := &fakeMetricsSource{pkg: observationWith(
		models.TableMetrics{Table: "users", SkipError: "connection refused"},
		models.TableMetrics{
			Table:    "orders",
			RowCount: 1000, BaselineRowCount: 1000,
			FreshnessMinutes: 5,
			Columns: []models.ColumnStats{
				{Name: "user_id", NullRate: 0.50},
			},
			BaselineNullRates: map[string]float64{"user_id": 0.05},
		},
	)}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, obs.Package.SkippedSources)
	// The skipped table contributes no signals; the readable one still does.
	require.Len(t, obs.Signals, 1)
	assert.Equal(t, "orders.user_id", obs.Signals[0].Source)
}

func TestObserverAbortsWhenWholeSourceUnavailable(t *testing.T) {
	source := &fakeMetricsSource{err: fmt.Errorf("dial tcp: connection refused")}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	_, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.Error(t, err)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeSourceUnavailable, serr.Code())
}

func TestObserverAbortsWhenEveryTableUnreadable(t *testing.T) {
	source := &fakeMetricsSource{pkg: observationWith(
		models.TableMetrics{Table: "orders", SkipError: "connection refused"},
		models.TableMetrics{Table: "users", SkipError: "connection refused"},
	)}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	_, err := observer.Observe(context.Background(), models.NewTenant("demo", "Demo"))
	require.Error(t, err)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeSourceUnavailable, serr.Code())
}

func TestObserverRespectsPerTableOverrides(t *testing.T) {
	tenant := models.NewTenant("demo", "Demo")
	tenant.Config.Tables = map[string]models.TableConfig{
		"orders": {NullRateDeltaThreshold: 0.60, ExpectedFreshnessMinutes: 10_000, RowCountDropRatio: 0.99},
	}
	source := &fakeMetricsSource{pkg: observationWith(models.TableMetrics{
		Table:    "orders",
		RowCount: 500, BaselineRowCount: 1000,
		FreshnessMinutes: 120,
		Columns: []models.ColumnStats{
			{Name: "user_id", NullRate: 0.50},
		},
		BaselineNullRates: map[string]float64{"user_id": 0.05},
	})}
	observer := NewObserver(source, nil, logger.NewNoopLogger())

	obs, err := observer.Observe(context.Background(), tenant)
	require.NoError(t, err)
	assert.Empty(t, obs.Signals, "loosened thresholds should swallow every crossing")
}
