package pipeline

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/infrastructure/monitoring"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// Historian persists completed incident records into the tenant's partition.
// A write either lands completely or not at all; transient failures are
// retried a bounded number of times before the cycle aborts.
type Historian struct {
	incidentRepo repository.IncidentRepository
	metrics      *monitoring.Metrics
	logger       logger.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// NewHistorian creates the historian stage.
func NewHistorian(incidentRepo repository.IncidentRepository, metrics *monitoring.Metrics, log logger.Logger) *Historian {
	return &Historian{
		incidentRepo: incidentRepo,
		metrics:      metrics,
		logger:       log.WithComponent("historian"),
		sleep:        time.Sleep,
	}
}

// Persist writes the incident with bounded retries.
func (h *Historian) Persist(ctx context.Context, incident *models.Incident) error {
	var lastErr error
	for attempt := 1; attempt <= constants.PersistMaxAttempts; attempt++ {
		lastErr = h.incidentRepo.Append(ctx, incident)
		if lastErr == nil {
			if h.metrics != nil {
				h.metrics.RecordIncident(incident.TenantID, incident.Type, incident.Status)
			}
			return nil
		}

		h.logger.Warn(ctx, "Incident persist attempt failed",
			logger.String("tenant_id", incident.TenantID),
			logger.String("incident_id", incident.ID),
			logger.Int("attempt", attempt),
			logger.String("error", lastErr.Error()),
		)
		if attempt < constants.PersistMaxAttempts {
			select {
			case <-ctx.Done():
				return errors.ErrPersistenceFailure(ctx.Err())
			default:
				h.sleep(time.Duration(attempt) * 100 * time.Millisecond)
			}
		}
	}
	return errors.ErrPersistenceFailure(lastErr)
}

// MTTR reports the tenant's mean time to resolve over archived incidents
// within the trailing window.
func (h *Historian) MTTR(ctx context.Context, tenantID string, window time.Duration) (*repository.MTTRStats, error) {
	if window <= 0 {
		window = constants.DefaultMTTRWindow
	}
	return h.incidentRepo.MTTR(ctx, tenantID, window)
}
