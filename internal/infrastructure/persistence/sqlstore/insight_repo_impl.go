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

// InsightRepoImpl implements InsightRepository on GORM.
type InsightRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewInsightRepository creates a GORM-backed pattern insight repository.
func NewInsightRepository(db *gorm.DB, log logger.Logger) repository.InsightRepository {
	return &InsightRepoImpl{
		db:     db,
		logger: log,
	}
}

// UpsertBySignature replaces the insight carrying the same pattern signature.
// The meta-learner recomputes frequencies from scratch on every run, so the
// newest row always wins.
func (r *InsightRepoImpl) UpsertBySignature(ctx context.Context, insight *models.PatternInsight) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PatternInsight
		err := tx.Where("tenant_id = ? AND pattern_signature = ?",
			insight.TenantID, insight.PatternSignature).
			First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			return tx.Create(insight).Error
		case err != nil:
			return err
		default:
			insight.ID = existing.ID
			return tx.Model(&models.PatternInsight{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"frequency":      insight.Frequency,
					"recommendation": insight.Recommendation,
					"analyzed_at":    insight.AnalyzedAt,
				}).Error
		}
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to upsert pattern insight", err,
			logger.String("tenant_id", insight.TenantID),
			logger.String("signature", insight.PatternSignature),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return nil
}

// ListByTenant returns the tenant's insights, most frequent first.
func (r *InsightRepoImpl) ListByTenant(ctx context.Context, tenantID string) ([]*models.PatternInsight, error) {
	var insights []*models.PatternInsight
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("frequency DESC, pattern_signature ASC").
		Find(&insights).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list pattern insights", err, logger.String("tenant_id", tenantID))
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return insights, nil
}
