package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// MetaLearner mines the incident history for chronic offenders: a
// (source, incident type) pair recurring often enough becomes a pattern
// insight that future triage reads. It runs on its own schedule, decoupled
// from detection cycles.
type MetaLearner struct {
	incidentRepo repository.IncidentRepository
	insightRepo  repository.InsightRepository
	tenantRepo   repository.TenantRepository
	interval     time.Duration
	logger       logger.Logger
}

// NewMetaLearner creates the meta-learner.
func NewMetaLearner(
	incidentRepo repository.IncidentRepository,
	insightRepo repository.InsightRepository,
	tenantRepo repository.TenantRepository,
	interval time.Duration,
	log logger.Logger,
) *MetaLearner {
	if interval <= 0 {
		interval = constants.DefaultMetaLearnInterval
	}
	return &MetaLearner{
		incidentRepo: incidentRepo,
		insightRepo:  insightRepo,
		tenantRepo:   tenantRepo,
		interval:     interval,
		logger:       log.WithComponent("metalearner"),
	}
}

// Start runs the analysis loop until the context is cancelled.
func (m *MetaLearner) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info(ctx, "Meta-learner started", logger.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "Meta-learner stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce analyzes every active tenant.
func (m *MetaLearner) RunOnce(ctx context.Context) {
	tenants, _, err := m.tenantRepo.FindAll(ctx, 0, 0)
	if err != nil {
		m.logger.Error(ctx, "Meta-learner tenant listing failed", err)
		return
	}
	for _, tenant := range tenants {
		if !tenant.IsActive() {
			continue
		}
		if _, err := m.AnalyzeTenant(ctx, tenant.TenantID); err != nil {
			m.logger.Error(ctx, "Tenant analysis failed", err,
				logger.String("tenant_id", tenant.TenantID),
			)
		}
	}
}

// AnalyzeTenant recomputes the tenant's chronic-offender insights over the
// trailing MTTR window and returns the insights written.
func (m *MetaLearner) AnalyzeTenant(ctx context.Context, tenantID string) ([]*models.PatternInsight, error) {
	since := time.Now().UTC().Add(-constants.DefaultMTTRWindow)
	incidents, _, err := m.incidentRepo.List(ctx, tenantID, repository.IncidentFilter{Since: since})
	if err != nil {
		return nil, err
	}

	type pair struct {
		source string
		itype  constants.IncidentType
	}
	freq := make(map[pair]int)
	for _, in := range incidents {
		if in.Status == constants.IncidentStatusFalsePositive {
			continue
		}
		freq[pair{in.Source, in.Type}]++
	}

	now := time.Now().UTC()
	var written []*models.PatternInsight
	for p, count := range freq {
		if count < constants.ChronicOffenderMinFrequency {
			continue
		}
		insight := &models.PatternInsight{
			ID:               uuid.NewString(),
			TenantID:         tenantID,
			Source:           p.source,
			IncidentType:     p.itype,
			Frequency:        count,
			PatternSignature: fmt.Sprintf("%s|%s", p.source, p.itype),
			Recommendation:   models.RecommendationForFrequency(count),
			AnalyzedAt:       now,
		}
		if err := m.insightRepo.UpsertBySignature(ctx, insight); err != nil {
			return written, err
		}
		written = append(written, insight)
	}

	m.logger.Info(ctx, "Tenant analysis completed",
		logger.String("tenant_id", tenantID),
		logger.Int("incidents", len(incidents)),
		logger.Int("insights", len(written)),
	)
	return written, nil
}
