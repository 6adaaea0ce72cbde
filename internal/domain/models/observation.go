package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// ColumnStats carries per-column quality metrics from a metrics source.
type ColumnStats struct {
	Name     string  `json:"name"`
	NullRate float64 `json:"null_rate"` // [0,1]
	Type     string  `json:"type,omitempty"`
}

// TableMetrics is the per-table slice of an observation snapshot.
type TableMetrics struct {
	Table            string        `json:"table"`
	RowCount         int64         `json:"row_count"`
	BaselineRowCount int64         `json:"baseline_row_count"`
	FreshnessMinutes int           `json:"freshness_minutes"` // age of newest row
	Columns          []ColumnStats `json:"columns,omitempty"`

	// BaselineNullRates holds the rolling per-column null-rate baseline.
	BaselineNullRates map[string]float64 `json:"baseline_null_rates,omitempty"`

	// SkipError is set when this table's read failed; the scan continued.
	SkipError string `json:"skip_error,omitempty"`
}

// SchemaFingerprint hashes the ordered column name/type set so schema drift
// is detectable without storing full schemas.
func (t TableMetrics) SchemaFingerprint() string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c.Name+":"+c.Type)
	}
	sort.Strings(cols)
	sum := sha256.Sum256([]byte(strings.Join(cols, ",")))
	return hex.EncodeToString(sum[:8])
}

// ChangeEvent is a recent deploy/migration/pipeline event relevant to triage.
type ChangeEvent struct {
	Kind    string                      `json:"kind"` // "deploy", "migration", "pipeline_run"
	Source  string                      `json:"source"`
	Detail  string                      `json:"detail"`
	Status  constants.PipelineRunStatus `json:"status,omitempty"`
	At      time.Time                   `json:"at"`
}

// ObservationPackage is an immutable, timestamped snapshot of per-table
// metrics plus recent change events. It is constructed as a fresh value per
// cycle and never aliases a shared baseline object.
type ObservationPackage struct {
	TenantID     string         `json:"tenant_id"`
	Tables       []TableMetrics `json:"tables"`
	RecentEvents []ChangeEvent  `json:"recent_events,omitempty"`

	// SkippedSources lists tables whose reads failed this cycle.
	SkippedSources []string `json:"skipped_sources,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// AnomalySignal is a single threshold crossing detected by the observer.
type AnomalySignal struct {
	Source   string             `json:"source"` // table or table.column
	Metric   string             `json:"metric"` // "null_rate", "row_count", "freshness", "schema", "pipeline"
	Observed float64            `json:"observed"`
	Baseline float64            `json:"baseline"`
	Severity constants.Severity `json:"severity"`
	Detail   string             `json:"detail,omitempty"`
}
