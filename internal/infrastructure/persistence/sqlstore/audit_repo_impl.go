package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// AuditRepoImpl implements AuditRepository on GORM. Rows are append-only;
// there is deliberately no update or delete path.
type AuditRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAuditRepository creates a GORM-backed audit repository.
func NewAuditRepository(db *gorm.DB, log logger.Logger) repository.AuditRepository {
	return &AuditRepoImpl{
		db:     db,
		logger: log,
	}
}

// AppendAudit persists an audit event.
func (r *AuditRepoImpl) AppendAudit(ctx context.Context, event *models.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.logger.Error(ctx, "Failed to append audit event", err,
			logger.String("tenant_id", event.TenantID),
			logger.String("action", event.Action),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return nil
}

// ListAudit returns the tenant's most recent audit events.
func (r *AuditRepoImpl) ListAudit(ctx context.Context, tenantID string, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []*models.AuditEvent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return events, nil
}

// AppendPipelineEvent persists an external pipeline run report.
func (r *AuditRepoImpl) AppendPipelineEvent(ctx context.Context, event *models.PipelineEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.logger.Error(ctx, "Failed to append pipeline event", err,
			logger.String("tenant_id", event.TenantID),
			logger.String("pipeline", event.Pipeline),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "Pipeline event recorded",
		logger.String("tenant_id", event.TenantID),
		logger.String("pipeline", event.Pipeline),
		logger.String("status", string(event.Status)),
		logger.Int64("rows_processed", event.RowsProcessed),
	)
	return nil
}

// RecentPipelineEvents returns the tenant's most recent pipeline run reports.
func (r *AuditRepoImpl) RecentPipelineEvents(ctx context.Context, tenantID string, limit int) ([]*models.PipelineEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []*models.PipelineEvent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("reported_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return events, nil
}
