package repository

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
)

// TenantRepository defines the interface for interacting with tenant storage.
type TenantRepository interface {
	// Save persists a new tenant.
	Save(ctx context.Context, tenant *models.Tenant) error

	// FindByID retrieves a tenant by ID, including its configuration.
	FindByID(ctx context.Context, tenantID string) (*models.Tenant, error)

	// FindAll retrieves all tenants, with pagination.
	FindAll(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// UpdateConfig updates a tenant's configuration.
	UpdateConfig(ctx context.Context, tenant *models.Tenant) error

	// UpdateStatus changes tenant status (active, suspended, inactive).
	UpdateStatus(ctx context.Context, tenantID string, status constants.TenantStatus) error

	// Delete removes a tenant record. Soft delete unless hard is set.
	Delete(ctx context.Context, tenantID string, hard bool) error

	// Exists checks if a tenant exists by ID.
	Exists(ctx context.Context, tenantID string) (bool, error)
}
