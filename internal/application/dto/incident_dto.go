package dto

import (
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
)

// ListIncidentsRequest filters and pages the incident history.
type ListIncidentsRequest struct {
	Type          string  `form:"type" json:"type"`
	MinConfidence float64 `form:"min_confidence" json:"min_confidence"`
	Since         string  `form:"since" json:"since"` // RFC3339
	Until         string  `form:"until" json:"until"` // RFC3339
	Archived      *bool   `form:"archived" json:"archived,omitempty"`
	Page          int     `form:"page" json:"page"`
	PageSize      int     `form:"page_size" json:"page_size"`
}

// IncidentSummary is the compact incident view used in listings.
type IncidentSummary struct {
	ID         string    `json:"id"`
	CycleID    string    `json:"cycle_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Archived   bool      `json:"archived"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListIncidentsResponse is the paged incident listing.
type ListIncidentsResponse struct {
	Incidents []IncidentSummary `json:"incidents"`
	Total     int64             `json:"total"`
}

// BulkIncidentRequest names the incidents for a bulk archive or delete.
type BulkIncidentRequest struct {
	IncidentIDs []string `json:"incident_ids" binding:"required"`
}

// BulkIncidentResponse reports how many records the bulk operation touched.
type BulkIncidentResponse struct {
	Affected int64 `json:"affected"`
}

// MTTRResponse is the mean-time-to-resolve aggregation over archived incidents.
type MTTRResponse struct {
	Count       int     `json:"count"`
	MeanSeconds float64 `json:"mean_seconds"`
	P95Seconds  float64 `json:"p95_seconds"`
	WindowDays  int     `json:"window_days"`
}

// SummaryFromModel converts a domain incident to its listing view.
func SummaryFromModel(in *models.Incident) IncidentSummary {
	return IncidentSummary{
		ID:         in.ID,
		CycleID:    in.CycleID,
		Type:       string(in.Type),
		Status:     string(in.Status),
		Source:     in.Source,
		Confidence: in.FinalConfidenceScore,
		Archived:   in.Archived,
		CreatedAt:  in.CreatedAt,
	}
}

// MTTRFromStats converts repository MTTR stats to the API view.
func MTTRFromStats(stats *repository.MTTRStats, window time.Duration) *MTTRResponse {
	return &MTTRResponse{
		Count:       stats.Count,
		MeanSeconds: stats.Mean.Seconds(),
		P95Seconds:  stats.P95.Seconds(),
		WindowDays:  int(window.Hours() / 24),
	}
}
