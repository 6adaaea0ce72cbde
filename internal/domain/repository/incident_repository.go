// Package repository defines the persistence ports for the Sentra domain.
// Implementations live under internal/infrastructure/persistence.
package repository

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
)

// IncidentFilter narrows incident listings. Zero values mean "no constraint".
type IncidentFilter struct {
	Type            constants.IncidentType
	MinConfidence   float64
	Since           time.Time
	Until           time.Time
	Archived        *bool
	Limit           int
	Offset          int
}

// MTTRStats is the aggregation result over archived incidents.
type MTTRStats struct {
	Count      int           `json:"count"`
	Mean       time.Duration `json:"mean"`
	P95        time.Duration `json:"p95"`
}

// IncidentStats summarizes a tenant's incident history.
type IncidentStats struct {
	Total       int64   `json:"total"`
	Active      int64   `json:"active"`
	Critical    int64   `json:"critical"`
	Archived    int64   `json:"archived"`
	HealthScore float64 `json:"health_score"` // [0,100]
}

// TrendBucket is one time bucket of the incident trend aggregation.
type TrendBucket struct {
	Day    string                           `json:"day"`
	Counts map[constants.IncidentType]int64 `json:"counts"`
}

// IncidentRepository is the per-tenant durable incident store. Every method
// is tenant-scoped; partitions never cross tenant boundaries. Append is
// atomic: a record is fully visible or not at all.
type IncidentRepository interface {
	// Append persists a complete incident record atomically.
	Append(ctx context.Context, incident *models.Incident) error

	// FindByID retrieves an incident; wrong-tenant reads report not found.
	FindByID(ctx context.Context, tenantID, incidentID string) (*models.Incident, error)

	// List returns incidents matching the filter, newest first, with the
	// total match count.
	List(ctx context.Context, tenantID string, filter IncidentFilter) ([]*models.Incident, int64, error)

	// Archive marks an incident resolved. Idempotent; missing IDs report
	// not found, never an error state.
	Archive(ctx context.Context, tenantID, incidentID string) (bool, error)

	// Delete hard-deletes an incident. Returns false for missing IDs.
	Delete(ctx context.Context, tenantID, incidentID string) (bool, error)

	// BulkArchive archives many incidents, returning the number affected.
	BulkArchive(ctx context.Context, tenantID string, incidentIDs []string) (int64, error)

	// BulkDelete deletes many incidents, returning the number affected.
	BulkDelete(ctx context.Context, tenantID string, incidentIDs []string) (int64, error)

	// UpdateRemediation appends remediation outcome fields on an existing
	// incident (recommended actions + decision log entries).
	UpdateRemediation(ctx context.Context, tenantID, incidentID string, actions []string, entries []models.DecisionLogEntry) error

	// Stats returns active/critical counts and health score.
	Stats(ctx context.Context, tenantID string) (*IncidentStats, error)

	// MTTR aggregates detected-to-resolved durations over archived incidents
	// within the trailing window. Open incidents never contribute.
	MTTR(ctx context.Context, tenantID string, window time.Duration) (*MTTRStats, error)

	// Trends buckets incident counts per day and type within the window.
	Trends(ctx context.Context, tenantID string, window time.Duration) ([]TrendBucket, error)
}
