package metricsource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// WarehouseSource reads live table statistics from a PostgreSQL warehouse.
// Each table is scanned independently; one unreadable table is recorded as
// skipped and never aborts the snapshot.
type WarehouseSource struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewWarehouseSource creates a pgx-backed metrics source.
func NewWarehouseSource(pool *pgxpool.Pool, log logger.Logger) *WarehouseSource {
	return &WarehouseSource{
		pool:   pool,
		logger: log,
	}
}

var _ service.MetricsSource = (*WarehouseSource)(nil)

// Snapshot builds a fresh ObservationPackage from live warehouse statistics.
func (w *WarehouseSource) Snapshot(ctx context.Context, tenant *models.Tenant, tables []string) (models.ObservationPackage, error) {
	pkg := models.ObservationPackage{
		TenantID:   tenant.TenantID,
		ObservedAt: time.Now().UTC(),
	}

	for _, table := range tables {
		metrics, err := w.scanTable(ctx, table)
		if err != nil {
			w.logger.Warn(ctx, "Table scan failed, skipping",
				logger.String("tenant_id", tenant.TenantID),
				logger.String("table", table),
				logger.String("error", err.Error()),
			)
			pkg.SkippedSources = append(pkg.SkippedSources, table)
			pkg.Tables = append(pkg.Tables, models.TableMetrics{
				Table:     table,
				SkipError: err.Error(),
			})
			continue
		}
		pkg.Tables = append(pkg.Tables, metrics)
	}

	events, err := w.recentEvents(ctx)
	if err != nil {
		// Change history is triage context, not a scan prerequisite.
		w.logger.Warn(ctx, "Change event lookup failed",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("error", err.Error()),
		)
	} else {
		pkg.RecentEvents = events
	}
	return pkg, nil
}

func (w *WarehouseSource) scanTable(ctx context.Context, table string) (models.TableMetrics, error) {
	m := models.TableMetrics{Table: table}

	rows, err := w.pool.Query(ctx,
		`SELECT column_name, data_type
		   FROM information_schema.columns
		  WHERE table_schema = 'public' AND table_name = $1
		  ORDER BY ordinal_position`, table)
	if err != nil {
		return m, fmt.Errorf("columns query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col models.ColumnStats
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return m, fmt.Errorf("columns scan: %w", err)
		}
		m.Columns = append(m.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("columns rows: %w", err)
	}
	if len(m.Columns) == 0 {
		return m, fmt.Errorf("table %q not found", table)
	}

	// pg_stat_user_tables gives an estimate cheap enough to run per cycle.
	err = w.pool.QueryRow(ctx,
		`SELECT COALESCE(n_live_tup, 0)
		   FROM pg_stat_user_tables
		  WHERE schemaname = 'public' AND relname = $1`, table).
		Scan(&m.RowCount)
	if err != nil {
		return m, fmt.Errorf("row count query: %w", err)
	}

	for i, col := range m.Columns {
		switch col.Type {
		case "timestamp with time zone", "timestamp without time zone":
			if col.Name == "updated_at" || col.Name == "created_at" {
				var newest *time.Time
				q := fmt.Sprintf(`SELECT MAX(%q) FROM %q`, col.Name, table)
				if err := w.pool.QueryRow(ctx, q).Scan(&newest); err == nil && newest != nil {
					age := int(time.Since(*newest).Minutes())
					if m.FreshnessMinutes == 0 || age < m.FreshnessMinutes {
						m.FreshnessMinutes = age
					}
				}
			}
		}

		var nullFrac float64
		err := w.pool.QueryRow(ctx,
			`SELECT COALESCE(null_frac, 0)
			   FROM pg_stats
			  WHERE schemaname = 'public' AND tablename = $1 AND attname = $2`,
			table, col.Name).Scan(&nullFrac)
		if err == nil {
			m.Columns[i].NullRate = nullFrac
		}
	}

	m.BaselineRowCount = m.RowCount
	m.BaselineNullRates = make(map[string]float64, len(m.Columns))
	err = func() error {
		baseRows, err := w.pool.Query(ctx,
			`SELECT column_name, null_rate, row_count
			   FROM observation_baselines
			  WHERE table_name = $1`, table)
		if err != nil {
			return err
		}
		defer baseRows.Close()
		for baseRows.Next() {
			var colName string
			var nullRate float64
			var rowCount int64
			if err := baseRows.Scan(&colName, &nullRate, &rowCount); err != nil {
				return err
			}
			m.BaselineNullRates[colName] = nullRate
			if rowCount > 0 {
				m.BaselineRowCount = rowCount
			}
		}
		return baseRows.Err()
	}()
	if err != nil {
		// Without a baseline the observed values become the baseline; the
		// observer then sees no delta rather than a phantom anomaly.
		for _, col := range m.Columns {
			m.BaselineNullRates[col.Name] = col.NullRate
		}
	}

	return m, nil
}

func (w *WarehouseSource) recentEvents(ctx context.Context) ([]models.ChangeEvent, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT kind, source, detail, occurred_at
		   FROM change_events
		  WHERE occurred_at > NOW() - INTERVAL '24 hours'
		  ORDER BY occurred_at DESC
		  LIMIT 20`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ChangeEvent
	for rows.Next() {
		var e models.ChangeEvent
		if err := rows.Scan(&e.Kind, &e.Source, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
