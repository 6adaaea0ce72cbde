package service

import (
	"context"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/pipeline"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// ApprovalAppService lists pending approval tokens and applies human decisions.
// Decisions delegate to the remediation engine so the single-use guarantee has
// exactly one enforcement point.
type ApprovalAppService interface {
	// ListPending returns the tenant's pending tokens.
	ListPending(ctx context.Context, tenantID string) (*dto.ListApprovalsResponse, error)

	// Get retrieves one token.
	Get(ctx context.Context, tenantID, tokenID string) (*dto.ApprovalResponse, error)

	// Decide consumes a pending token. Approval executes the playbook.
	Decide(ctx context.Context, tenantID, tokenID string, req *dto.ApprovalDecisionRequest) (*dto.ApprovalDecisionResponse, error)
}

type approvalAppServiceImpl struct {
	approvalRepo repository.ApprovalRepository
	remediation  *pipeline.RemediationEngine
	auditRepo    repository.AuditRepository
	logger       logger.Logger
}

// NewApprovalAppService creates the approval application service.
func NewApprovalAppService(approvalRepo repository.ApprovalRepository, remediation *pipeline.RemediationEngine, auditRepo repository.AuditRepository, log logger.Logger) ApprovalAppService {
	return &approvalAppServiceImpl{
		approvalRepo: approvalRepo,
		remediation:  remediation,
		auditRepo:    auditRepo,
		logger:       log.WithComponent("approval_service"),
	}
}

func (s *approvalAppServiceImpl) ListPending(ctx context.Context, tenantID string) (*dto.ListApprovalsResponse, error) {
	tokens, err := s.approvalRepo.ListPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]dto.ApprovalResponse, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, dto.ApprovalFromModel(t))
	}
	return &dto.ListApprovalsResponse{Approvals: views}, nil
}

func (s *approvalAppServiceImpl) Get(ctx context.Context, tenantID, tokenID string) (*dto.ApprovalResponse, error) {
	token, err := s.approvalRepo.FindByID(ctx, tenantID, tokenID)
	if err != nil {
		return nil, err
	}
	view := dto.ApprovalFromModel(token)
	return &view, nil
}

func (s *approvalAppServiceImpl) Decide(ctx context.Context, tenantID, tokenID string, req *dto.ApprovalDecisionRequest) (*dto.ApprovalDecisionResponse, error) {
	if req.DecidedBy == "" {
		return nil, errors.ErrInvalidRequest("decided_by is required")
	}

	token, steps, err := s.remediation.DecideApproval(ctx, tenantID, tokenID, req.Approve, req.DecidedBy, req.Comment)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Approval decided",
		logger.String("tenant_id", tenantID),
		logger.String("token_id", tokenID),
		logger.Bool("approved", req.Approve),
		logger.String("decided_by", req.DecidedBy),
	)
	decision := "rejected"
	if req.Approve {
		decision = "approved"
	}
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, req.DecidedBy, "approval_decided", decision+" "+tokenID)
	return &dto.ApprovalDecisionResponse{
		Token: dto.ApprovalFromModel(token),
		Steps: steps,
	}, nil
}
