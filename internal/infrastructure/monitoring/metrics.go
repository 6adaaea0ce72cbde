package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/sentra/pkg/constants"
)

// Metrics manages the Prometheus metrics for the detection pipeline.
type Metrics struct {
	CyclesStarted     *prometheus.CounterVec
	CyclesCompleted   *prometheus.CounterVec
	CycleDuration     *prometheus.HistogramVec
	IncidentsDetected *prometheus.CounterVec
	OracleCalls       *prometheus.CounterVec
	OracleLatency     *prometheus.HistogramVec
	Notifications     *prometheus.CounterVec
	ApprovalsPending  *prometheus.GaugeVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CyclesStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentra_cycles_started_total",
				Help: "Total number of detection cycles started.",
			},
			[]string{"tenant_id"},
		),
		CyclesCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentra_cycles_completed_total",
				Help: "Total number of detection cycles completed, by terminal state.",
			},
			[]string{"tenant_id", "state"},
		),
		CycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentra_cycle_duration_seconds",
				Help:    "Duration of detection cycles.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant_id"},
		),
		IncidentsDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentra_incidents_detected_total",
				Help: "Total number of incidents persisted, by type and status.",
			},
			[]string{"tenant_id", "type", "status"},
		),
		OracleCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentra_oracle_calls_total",
				Help: "Oracle gateway resolutions, by outcome (api, cache, fallback).",
			},
			[]string{"tenant_id", "stage", "outcome"},
		),
		OracleLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentra_oracle_latency_seconds",
				Help:    "Latency of oracle API calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		Notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentra_notifications_total",
				Help: "Escalation notifications, by channel and result (sent, suppressed, failed).",
			},
			[]string{"tenant_id", "channel", "result"},
		),
		ApprovalsPending: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentra_approvals_pending",
				Help: "Number of pending remediation approval tokens.",
			},
			[]string{"tenant_id"},
		),
	}
}

// RecordCycleStart records a cycle start.
func (m *Metrics) RecordCycleStart(tenantID string) {
	m.CyclesStarted.WithLabelValues(tenantID).Inc()
}

// RecordCycleEnd records a terminal cycle state with its duration.
func (m *Metrics) RecordCycleEnd(tenantID string, state constants.CycleState, duration time.Duration) {
	m.CyclesCompleted.WithLabelValues(tenantID, string(state)).Inc()
	m.CycleDuration.WithLabelValues(tenantID).Observe(duration.Seconds())
}

// RecordIncident records a persisted incident.
func (m *Metrics) RecordIncident(tenantID string, incidentType constants.IncidentType, status constants.IncidentStatus) {
	m.IncidentsDetected.WithLabelValues(tenantID, string(incidentType), string(status)).Inc()
}

// RecordOracleCall records one gateway resolution.
func (m *Metrics) RecordOracleCall(tenantID string, stage constants.Stage, outcome string, latency time.Duration) {
	m.OracleCalls.WithLabelValues(tenantID, string(stage), outcome).Inc()
	if outcome == "api" {
		m.OracleLatency.WithLabelValues(string(stage)).Observe(latency.Seconds())
	}
}

// RecordNotification records a notification outcome.
func (m *Metrics) RecordNotification(tenantID, channel, result string) {
	m.Notifications.WithLabelValues(tenantID, channel, result).Inc()
}
