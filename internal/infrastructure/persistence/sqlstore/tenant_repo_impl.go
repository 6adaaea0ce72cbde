package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// TenantRepoImpl implements TenantRepository on GORM.
type TenantRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewTenantRepository creates a GORM-backed tenant repository.
func NewTenantRepository(db *gorm.DB, log logger.Logger) repository.TenantRepository {
	return &TenantRepoImpl{
		db:     db,
		logger: log,
	}
}

// Save persists a new tenant.
func (r *TenantRepoImpl) Save(ctx context.Context, tenant *models.Tenant) error {
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now
	if tenant.Status == "" {
		tenant.Status = constants.TenantStatusActive
	}

	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		r.logger.Error(ctx, "Failed to create tenant", err,
			logger.String("tenant_id", tenant.TenantID),
			logger.String("tenant_name", tenant.TenantName),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "Tenant created",
		logger.String("tenant_id", tenant.TenantID),
		logger.String("tenant_name", tenant.TenantName),
	)
	return nil
}

// FindByID retrieves a tenant with its pipeline configuration.
func (r *TenantRepoImpl) FindByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&tenant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTenantNotFound(tenantID)
		}
		r.logger.Error(ctx, "Failed to retrieve tenant", err, logger.String("tenant_id", tenantID))
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &tenant, nil
}

// FindAll retrieves tenants with pagination, newest first.
func (r *TenantRepoImpl) FindAll(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Tenant{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var tenants []*models.Tenant
	if err := q.Find(&tenants).Error; err != nil {
		r.logger.Error(ctx, "Failed to list tenants", err)
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return tenants, total, nil
}

// UpdateConfig replaces a tenant's pipeline configuration.
func (r *TenantRepoImpl) UpdateConfig(ctx context.Context, tenant *models.Tenant) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenant.TenantID).
		Updates(map[string]interface{}{
			"config":     tenant.Config,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update tenant config", result.Error,
			logger.String("tenant_id", tenant.TenantID),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTenantNotFound(tenant.TenantID)
	}

	r.logger.Info(ctx, "Tenant config updated", logger.String("tenant_id", tenant.TenantID))
	return nil
}

// UpdateStatus changes tenant status.
func (r *TenantRepoImpl) UpdateStatus(ctx context.Context, tenantID string, status constants.TenantStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update tenant status", result.Error,
			logger.String("tenant_id", tenantID),
			logger.String("status", string(status)),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTenantNotFound(tenantID)
	}

	r.logger.Info(ctx, "Tenant status updated",
		logger.String("tenant_id", tenantID),
		logger.String("status", string(status)),
	)
	return nil
}

// Delete removes a tenant. Soft delete stamps DeletedAt and flips the status;
// hard delete removes the row.
func (r *TenantRepoImpl) Delete(ctx context.Context, tenantID string, hard bool) error {
	if hard {
		result := r.db.WithContext(ctx).
			Where("tenant_id = ?", tenantID).
			Delete(&models.Tenant{})
		if result.Error != nil {
			return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.ErrTenantNotFound(tenantID)
		}
		r.logger.Info(ctx, "Tenant deleted", logger.String("tenant_id", tenantID))
		return nil
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"status":     constants.TenantStatusDeleted,
			"deleted_at": &now,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrTenantNotFound(tenantID)
	}
	r.logger.Info(ctx, "Tenant soft-deleted", logger.String("tenant_id", tenantID))
	return nil
}

// Exists checks if a tenant exists by ID.
func (r *TenantRepoImpl) Exists(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return count > 0, nil
}
