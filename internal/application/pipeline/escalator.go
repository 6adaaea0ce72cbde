package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/internal/infrastructure/monitoring"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// Escalator notifies humans about incidents worth their attention. Repeat
// notifications for the same (tenant, incident type) are suppressed within the
// tenant's cooldown window; the suppression itself is logged. Deliveries are
// retried with exponential backoff per channel.
type Escalator struct {
	channels []service.NotificationChannel
	cooldown service.CooldownStore
	metrics  *monitoring.Metrics
	logger   logger.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// NewEscalator creates the escalator stage.
func NewEscalator(channels []service.NotificationChannel, cooldown service.CooldownStore, metrics *monitoring.Metrics, log logger.Logger) *Escalator {
	return &Escalator{
		channels: channels,
		cooldown: cooldown,
		metrics:  metrics,
		logger:   log.WithComponent("escalator"),
		sleep:    time.Sleep,
	}
}

// AlertLevelFor grades an incident for notification purposes.
func AlertLevelFor(incidentType constants.IncidentType, confidence float64) constants.AlertLevel {
	highImpact := incidentType == constants.IncidentTypeDataIntegrityFailure ||
		incidentType == constants.IncidentTypeSchemaChange
	switch {
	case (highImpact && confidence >= constants.CriticalConfidenceFloor) || confidence >= 95:
		return constants.AlertLevelCritical
	case confidence >= constants.DefaultAlertThreshold:
		return constants.AlertLevelWarning
	default:
		return constants.AlertLevelInfo
	}
}

// Escalate decides whether to notify and delivers on every enabled channel.
// It returns true when at least one notification went out.
func (e *Escalator) Escalate(ctx context.Context, tenant *models.Tenant, incident *models.Incident) (bool, error) {
	// Only verified incidents page humans. An unconfirmed verdict can carry a
	// high confidence score and still not be worth anyone's pager.
	if incident.Status != constants.IncidentStatusVerified {
		e.logger.Debug(ctx, "Incident not verified, no notification",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("incident_id", incident.ID),
			logger.String("status", string(incident.Status)),
		)
		return false, nil
	}
	if incident.FinalConfidenceScore < tenant.AlertThreshold() {
		e.logger.Debug(ctx, "Incident below alert threshold",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("incident_id", incident.ID),
			logger.Float64("confidence", incident.FinalConfidenceScore),
		)
		return false, nil
	}

	ok, err := e.cooldown.Acquire(ctx, tenant.TenantID, incident.Type, tenant.CooldownWindow())
	if err != nil {
		return false, err
	}
	if !ok {
		e.logger.Info(ctx, "Notification suppressed by cooldown",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("incident_type", string(incident.Type)),
			logger.Duration("window", tenant.CooldownWindow()),
		)
		if e.metrics != nil {
			e.metrics.RecordNotification(tenant.TenantID, "all", "suppressed")
		}
		return false, nil
	}

	level := AlertLevelFor(incident.Type, incident.FinalConfidenceScore)
	n := service.Notification{
		TenantID:   tenant.TenantID,
		Level:      level,
		Title:      fmt.Sprintf("%s on %s", incident.Type, incident.Source),
		Body:       e.renderBody(incident),
		IncidentID: incident.ID,
	}

	enabled := e.enabledChannels(tenant)
	if len(enabled) == 0 {
		e.logger.Warn(ctx, "No notification channels enabled",
			logger.String("tenant_id", tenant.TenantID),
		)
		return false, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range enabled {
		ch := ch
		g.Go(func() error {
			return e.sendWithRetry(gctx, ch, n)
		})
	}
	if err := g.Wait(); err != nil {
		return true, err
	}
	return true, nil
}

func (e *Escalator) enabledChannels(tenant *models.Tenant) []service.NotificationChannel {
	want := tenant.Config.Channels
	if len(want) == 0 {
		want = []string{"console"}
	}
	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}

	var enabled []service.NotificationChannel
	for _, ch := range e.channels {
		if wanted[ch.Name()] {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}

// sendWithRetry attempts delivery with exponential backoff. After the final
// attempt the failure is reported as a NotificationFailure.
func (e *Escalator) sendWithRetry(ctx context.Context, ch service.NotificationChannel, n service.Notification) error {
	var lastErr error
	for attempt := 1; attempt <= constants.NotificationMaxAttempts; attempt++ {
		lastErr = ch.Send(ctx, n)
		if lastErr == nil {
			if e.metrics != nil {
				e.metrics.RecordNotification(n.TenantID, ch.Name(), "sent")
			}
			return nil
		}

		e.logger.Warn(ctx, "Notification delivery failed",
			logger.String("tenant_id", n.TenantID),
			logger.String("channel", ch.Name()),
			logger.Int("attempt", attempt),
			logger.String("error", lastErr.Error()),
		)
		if attempt < constants.NotificationMaxAttempts {
			backoff := constants.NotificationBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				e.sleep(backoff)
			}
		}
	}

	if e.metrics != nil {
		e.metrics.RecordNotification(n.TenantID, ch.Name(), "failed")
	}
	return errors.ErrNotificationFailure(ch.Name(), constants.NotificationMaxAttempts, lastErr)
}

func (e *Escalator) renderBody(incident *models.Incident) string {
	body := fmt.Sprintf("status=%s confidence=%.0f", incident.Status, incident.FinalConfidenceScore)
	if incident.Hypothesis != nil {
		body += "\nroot cause: " + incident.Hypothesis.Description
	}
	if incident.VerificationResult != nil && incident.VerificationResult.EvidenceSummary != "" {
		body += "\nevidence: " + incident.VerificationResult.EvidenceSummary
	}
	for _, action := range incident.RecommendedActions {
		body += "\n- " + action
	}
	return body
}
