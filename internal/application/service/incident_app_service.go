package service

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// IncidentAppService exposes the tenant's incident history: listing, detail,
// archival lifecycle, and the reliability aggregations.
type IncidentAppService interface {
	// List returns the tenant's incidents matching the filter, newest first.
	List(ctx context.Context, tenantID string, req *dto.ListIncidentsRequest) (*dto.ListIncidentsResponse, error)

	// Get retrieves one full incident record.
	Get(ctx context.Context, tenantID, incidentID string) (*models.Incident, error)

	// Archive marks an incident resolved. Idempotent.
	Archive(ctx context.Context, tenantID, incidentID string) error

	// Delete hard-deletes an incident.
	Delete(ctx context.Context, tenantID, incidentID string) error

	// BulkArchive archives many incidents at once.
	BulkArchive(ctx context.Context, tenantID string, req *dto.BulkIncidentRequest) (*dto.BulkIncidentResponse, error)

	// BulkDelete deletes many incidents at once.
	BulkDelete(ctx context.Context, tenantID string, req *dto.BulkIncidentRequest) (*dto.BulkIncidentResponse, error)

	// Stats returns the tenant's incident counts and health score.
	Stats(ctx context.Context, tenantID string) (*repository.IncidentStats, error)

	// MTTR aggregates resolution times over archived incidents.
	MTTR(ctx context.Context, tenantID string, windowDays int) (*dto.MTTRResponse, error)

	// Trends buckets incident counts per day and type.
	Trends(ctx context.Context, tenantID string, windowDays int) ([]repository.TrendBucket, error)

	// Dashboard assembles the tenant overview in one call.
	Dashboard(ctx context.Context, tenantID string) (*dto.DashboardResponse, error)
}

type incidentAppServiceImpl struct {
	incidentRepo repository.IncidentRepository
	insightRepo  repository.InsightRepository
	logger       logger.Logger
}

// NewIncidentAppService creates the incident application service.
func NewIncidentAppService(incidentRepo repository.IncidentRepository, insightRepo repository.InsightRepository, log logger.Logger) IncidentAppService {
	return &incidentAppServiceImpl{
		incidentRepo: incidentRepo,
		insightRepo:  insightRepo,
		logger:       log.WithComponent("incident_service"),
	}
}

func (s *incidentAppServiceImpl) List(ctx context.Context, tenantID string, req *dto.ListIncidentsRequest) (*dto.ListIncidentsResponse, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	incidents, total, err := s.incidentRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.IncidentSummary, 0, len(incidents))
	for _, in := range incidents {
		summaries = append(summaries, dto.SummaryFromModel(in))
	}
	return &dto.ListIncidentsResponse{Incidents: summaries, Total: total}, nil
}

func (s *incidentAppServiceImpl) Get(ctx context.Context, tenantID, incidentID string) (*models.Incident, error) {
	return s.incidentRepo.FindByID(ctx, tenantID, incidentID)
}

func (s *incidentAppServiceImpl) Archive(ctx context.Context, tenantID, incidentID string) error {
	found, err := s.incidentRepo.Archive(ctx, tenantID, incidentID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrIncidentNotFound(incidentID)
	}
	s.logger.Info(ctx, "Incident archived",
		logger.String("tenant_id", tenantID),
		logger.String("incident_id", incidentID),
	)
	return nil
}

func (s *incidentAppServiceImpl) Delete(ctx context.Context, tenantID, incidentID string) error {
	found, err := s.incidentRepo.Delete(ctx, tenantID, incidentID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrIncidentNotFound(incidentID)
	}
	s.logger.Info(ctx, "Incident deleted",
		logger.String("tenant_id", tenantID),
		logger.String("incident_id", incidentID),
	)
	return nil
}

func (s *incidentAppServiceImpl) BulkArchive(ctx context.Context, tenantID string, req *dto.BulkIncidentRequest) (*dto.BulkIncidentResponse, error) {
	if len(req.IncidentIDs) == 0 {
		return nil, errors.ErrInvalidRequest("incident_ids must not be empty")
	}
	affected, err := s.incidentRepo.BulkArchive(ctx, tenantID, req.IncidentIDs)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Incidents bulk archived",
		logger.String("tenant_id", tenantID),
		logger.Int64("affected", affected),
	)
	return &dto.BulkIncidentResponse{Affected: affected}, nil
}

func (s *incidentAppServiceImpl) BulkDelete(ctx context.Context, tenantID string, req *dto.BulkIncidentRequest) (*dto.BulkIncidentResponse, error) {
	if len(req.IncidentIDs) == 0 {
		return nil, errors.ErrInvalidRequest("incident_ids must not be empty")
	}
	affected, err := s.incidentRepo.BulkDelete(ctx, tenantID, req.IncidentIDs)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Incidents bulk deleted",
		logger.String("tenant_id", tenantID),
		logger.Int64("affected", affected),
	)
	return &dto.BulkIncidentResponse{Affected: affected}, nil
}

func (s *incidentAppServiceImpl) Stats(ctx context.Context, tenantID string) (*repository.IncidentStats, error) {
	return s.incidentRepo.Stats(ctx, tenantID)
}

func (s *incidentAppServiceImpl) MTTR(ctx context.Context, tenantID string, windowDays int) (*dto.MTTRResponse, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	if window <= 0 {
		window = constants.DefaultMTTRWindow
	}
	stats, err := s.incidentRepo.MTTR(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}
	return dto.MTTRFromStats(stats, window), nil
}

func (s *incidentAppServiceImpl) Trends(ctx context.Context, tenantID string, windowDays int) ([]repository.TrendBucket, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	if window <= 0 {
		window = constants.DefaultMTTRWindow
	}
	return s.incidentRepo.Trends(ctx, tenantID, window)
}

func (s *incidentAppServiceImpl) Dashboard(ctx context.Context, tenantID string) (*dto.DashboardResponse, error) {
	stats, err := s.incidentRepo.Stats(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	mttr, err := s.MTTR(ctx, tenantID, 0)
	if err != nil {
		return nil, err
	}
	trends, err := s.incidentRepo.Trends(ctx, tenantID, constants.DefaultMTTRWindow)
	if err != nil {
		return nil, err
	}

	insights, err := s.insightRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		// The overview stays useful without the pattern section.
		s.logger.Warn(ctx, "Insight listing failed",
			logger.String("tenant_id", tenantID),
			logger.String("error", err.Error()),
		)
	}
	insightViews := make([]dto.InsightSummary, 0, len(insights))
	for _, in := range insights {
		insightViews = append(insightViews, dto.InsightSummary{
			Source:         in.Source,
			IncidentType:   string(in.IncidentType),
			Frequency:      in.Frequency,
			Recommendation: in.Recommendation,
			AnalyzedAt:     in.AnalyzedAt,
		})
	}

	return &dto.DashboardResponse{
		TenantID: tenantID,
		Stats:    stats,
		MTTR:     mttr,
		Trends:   trends,
		Insights: insightViews,
	}, nil
}

func buildFilter(req *dto.ListIncidentsRequest) (repository.IncidentFilter, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := repository.IncidentFilter{
		Type:          constants.IncidentType(req.Type),
		MinConfidence: req.MinConfidence,
		Archived:      req.Archived,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return filter, errors.ErrInvalidRequest("since must be RFC3339")
		}
		filter.Since = t
	}
	if req.Until != "" {
		t, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			return filter, errors.ErrInvalidRequest("until must be RFC3339")
		}
		filter.Until = t
	}
	return filter, nil
}
