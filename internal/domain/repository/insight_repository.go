package repository

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/models"
)

// InsightRepository stores meta-learner pattern insights. The meta-learner is
// the only writer; the reasoner reads insights as optional triage context.
type InsightRepository interface {
	// UpsertBySignature replaces the insight with the same pattern signature.
	UpsertBySignature(ctx context.Context, insight *models.PatternInsight) error

	// ListByTenant returns the tenant's insights ordered by frequency.
	ListByTenant(ctx context.Context, tenantID string) ([]*models.PatternInsight, error)
}
