package service

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/logger"
)

// recordAudit appends an audit trail row for an admin mutation. Best effort:
// a failed append is logged, never surfaced, so the trail cannot veto the
// mutation it describes.
func recordAudit(ctx context.Context, repo repository.AuditRepository, log logger.Logger, tenantID, actor, action, detail string) {
	if repo == nil {
		return
	}
	if err := repo.AppendAudit(ctx, models.NewAuditEvent(tenantID, actor, action, detail)); err != nil {
		log.Warn(ctx, "Audit append failed",
			logger.String("tenant_id", tenantID),
			logger.String("action", action),
			logger.String("error", err.Error()),
		)
	}
}
