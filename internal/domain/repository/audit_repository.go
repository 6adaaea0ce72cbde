package repository

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/models"
)

// AuditRepository appends tenant audit trail rows and pipeline run events.
type AuditRepository interface {
	// AppendAudit persists an audit event.
	AppendAudit(ctx context.Context, event *models.AuditEvent) error

	// ListAudit returns the tenant's most recent audit events.
	ListAudit(ctx context.Context, tenantID string, limit int) ([]*models.AuditEvent, error)

	// AppendPipelineEvent persists an external pipeline run report.
	AppendPipelineEvent(ctx context.Context, event *models.PipelineEvent) error

	// RecentPipelineEvents returns the tenant's most recent pipeline events.
	RecentPipelineEvents(ctx context.Context, tenantID string, limit int) ([]*models.PipelineEvent, error)
}
