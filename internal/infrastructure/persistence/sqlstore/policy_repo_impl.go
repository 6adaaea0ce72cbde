package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// PolicyRepoImpl implements PolicyRepository on GORM.
type PolicyRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewPolicyRepository creates a GORM-backed policy repository.
func NewPolicyRepository(db *gorm.DB, log logger.Logger) repository.PolicyRepository {
	return &PolicyRepoImpl{
		db:     db,
		logger: log,
	}
}

// Upsert creates or replaces a policy by ID.
func (r *PolicyRepoImpl) Upsert(ctx context.Context, policy *models.Policy) error {
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "enabled", "priority", "match", "action", "updated_at",
			}),
		}).
		Create(policy).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to upsert policy", err,
			logger.String("policy_id", policy.ID),
			logger.String("tenant_id", policy.TenantID),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "Policy upserted",
		logger.String("policy_id", policy.ID),
		logger.String("tenant_id", policy.TenantID),
		logger.Int("priority", policy.Priority),
	)
	return nil
}

// FindByID retrieves a policy within the tenant partition.
func (r *PolicyRepoImpl) FindByID(ctx context.Context, tenantID, policyID string) (*models.Policy, error) {
	var policy models.Policy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, policyID).
		First(&policy).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPolicyNotFound(policyID)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &policy, nil
}

// ListEnabled returns the tenant's enabled policies ordered by priority so the
// engine evaluates them deterministically.
func (r *PolicyRepoImpl) ListEnabled(ctx context.Context, tenantID string) ([]*models.Policy, error) {
	var policies []*models.Policy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("priority ASC, id ASC").
		Find(&policies).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list enabled policies", err, logger.String("tenant_id", tenantID))
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return policies, nil
}

// ListAll returns every policy for the tenant.
func (r *PolicyRepoImpl) ListAll(ctx context.Context, tenantID string) ([]*models.Policy, error) {
	var policies []*models.Policy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("priority ASC, id ASC").
		Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return policies, nil
}

// Delete removes a policy. Returns false for missing IDs.
func (r *PolicyRepoImpl) Delete(ctx context.Context, tenantID, policyID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, policyID).
		Delete(&models.Policy{})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to delete policy", result.Error,
			logger.String("policy_id", policyID),
			logger.String("tenant_id", tenantID),
		)
		return false, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected > 0, nil
}
