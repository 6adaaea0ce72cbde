package dto

import "time"

// TriggerCycleRequest is the optional trigger body.
type TriggerCycleRequest struct {
	// SimulateFailure runs the cycle against synthetic defect data, a
	// full-pipeline drill without touching the production source.
	SimulateFailure bool `json:"simulate_failure"`
}

// TriggerCycleResponse reports the outcome of a detection cycle trigger.
type TriggerCycleResponse struct {
	CycleID  string `json:"cycle_id"`
	TenantID string `json:"tenant_id"`
	State    string `json:"state"`
	Summary  string `json:"summary"`

	IncidentDetected bool     `json:"incident_detected"`
	IncidentID       string   `json:"incident_id,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`

	OracleUse OracleUsage `json:"oracle_use"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
}

// OracleUsage summarizes oracle spend for one cycle.
type OracleUsage struct {
	Calls     int `json:"calls"`
	CacheHits int `json:"cache_hits"`
}

// ReportPipelineEventRequest ingests an external ETL pipeline run report.
type ReportPipelineEventRequest struct {
	Pipeline   string `json:"pipeline" binding:"required"`
	Status     string `json:"status" binding:"required"`
	Detail     string `json:"detail,omitempty"`
	ReportedAt string `json:"reported_at,omitempty"` // RFC3339, defaults to now
}

// DashboardResponse is the tenant overview: stats, trends, chronic patterns.
type DashboardResponse struct {
	TenantID string           `json:"tenant_id"`
	Stats    interface{}      `json:"stats"`
	MTTR     *MTTRResponse    `json:"mttr"`
	Trends   interface{}      `json:"trends"`
	Insights []InsightSummary `json:"insights,omitempty"`
}

// InsightSummary is the chronic-offender pattern view.
type InsightSummary struct {
	Source         string    `json:"source"`
	IncidentType   string    `json:"incident_type"`
	Frequency      int       `json:"frequency"`
	Recommendation string    `json:"recommendation"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}
