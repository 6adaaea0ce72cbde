package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/pipeline"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// CycleAppService triggers detection cycles and ingests external pipeline
// run reports.
type CycleAppService interface {
	// TriggerCycle runs one detection cycle for the tenant synchronously.
	TriggerCycle(ctx context.Context, tenantID string, req *dto.TriggerCycleRequest) (*dto.TriggerCycleResponse, error)

	// ReportPipelineEvent records an external ETL run. FAILED runs feed the
	// next observation.
	ReportPipelineEvent(ctx context.Context, tenantID string, req *dto.ReportPipelineEventRequest) (*models.PipelineEvent, error)
}

type cycleAppServiceImpl struct {
	orchestrator *pipeline.Orchestrator
	auditRepo    repository.AuditRepository
	logger       logger.Logger
}

// NewCycleAppService creates the cycle application service.
func NewCycleAppService(orchestrator *pipeline.Orchestrator, auditRepo repository.AuditRepository, log logger.Logger) CycleAppService {
	return &cycleAppServiceImpl{
		orchestrator: orchestrator,
		auditRepo:    auditRepo,
		logger:       log.WithComponent("cycle_service"),
	}
}

func (s *cycleAppServiceImpl) TriggerCycle(ctx context.Context, tenantID string, req *dto.TriggerCycleRequest) (*dto.TriggerCycleResponse, error) {
	opts := pipeline.CycleOptions{}
	if req != nil {
		opts.SimulateFailure = req.SimulateFailure
	}
	result, err := s.orchestrator.RunCycleOpts(ctx, tenantID, opts)
	if err != nil {
		return nil, err
	}
	return toTriggerCycleResponse(result), nil
}

func toTriggerCycleResponse(result *pipeline.CycleResult) *dto.TriggerCycleResponse {
	resp := &dto.TriggerCycleResponse{
		CycleID:  result.CycleID,
		TenantID: result.TenantID,
		State:    string(result.State),
		Summary:  result.Summary,
		OracleUse: dto.OracleUsage{
			Calls:     result.OracleUse.CallCount,
			CacheHits: result.OracleUse.CacheHits,
		},
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
	}
	if result.Incident != nil {
		resp.IncidentDetected = true
		resp.IncidentID = result.Incident.ID
		confidence := result.Incident.FinalConfidenceScore
		resp.Confidence = &confidence
	}
	return resp
}

func (s *cycleAppServiceImpl) ReportPipelineEvent(ctx context.Context, tenantID string, req *dto.ReportPipelineEventRequest) (*models.PipelineEvent, error) {
	status := constants.PipelineRunStatus(req.Status)
	if status != constants.PipelineRunSuccess && status != constants.PipelineRunFailed {
		return nil, errors.ErrInvalidRequest("status must be SUCCESS or FAILED")
	}

	reportedAt := time.Now().UTC()
	if req.ReportedAt != "" {
		t, err := time.Parse(time.RFC3339, req.ReportedAt)
		if err != nil {
			return nil, errors.ErrInvalidRequest("reported_at must be RFC3339")
		}
		reportedAt = t.UTC()
	}

	event := &models.PipelineEvent{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Pipeline:   req.Pipeline,
		Status:     status,
		Detail:     req.Detail,
		ReportedAt: reportedAt,
	}
	if err := s.auditRepo.AppendPipelineEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}
