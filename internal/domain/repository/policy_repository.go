package repository

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/models"
)

// PolicyRepository stores tenant-scoped remediation policies.
type PolicyRepository interface {
	// Upsert creates or replaces a policy by ID.
	Upsert(ctx context.Context, policy *models.Policy) error

	// FindByID retrieves a policy.
	FindByID(ctx context.Context, tenantID, policyID string) (*models.Policy, error)

	// ListEnabled returns the tenant's enabled policies ordered by priority.
	ListEnabled(ctx context.Context, tenantID string) ([]*models.Policy, error)

	// ListAll returns every policy for the tenant.
	ListAll(ctx context.Context, tenantID string) ([]*models.Policy, error)

	// Delete removes a policy. Returns false for missing IDs.
	Delete(ctx context.Context, tenantID, policyID string) (bool, error)
}
