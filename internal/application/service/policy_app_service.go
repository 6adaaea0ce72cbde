package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// PolicyAppService manages the tenant's remediation policies.
type PolicyAppService interface {
	// Upsert creates or replaces a policy.
	Upsert(ctx context.Context, tenantID string, req *dto.UpsertPolicyRequest) (*dto.PolicyResponse, error)

	// Get retrieves one policy.
	Get(ctx context.Context, tenantID, policyID string) (*dto.PolicyResponse, error)

	// List returns every policy of the tenant.
	List(ctx context.Context, tenantID string) (*dto.ListPoliciesResponse, error)

	// Delete removes a policy.
	Delete(ctx context.Context, tenantID, policyID string) error

	// Seed loads policies into an empty tenant, skipping existing IDs.
	Seed(ctx context.Context, tenantID string, policies []*models.Policy) (int, error)
}

type policyAppServiceImpl struct {
	policyRepo repository.PolicyRepository
	auditRepo  repository.AuditRepository
	logger     logger.Logger
}

// NewPolicyAppService creates the policy application service.
func NewPolicyAppService(policyRepo repository.PolicyRepository, auditRepo repository.AuditRepository, log logger.Logger) PolicyAppService {
	return &policyAppServiceImpl{
		policyRepo: policyRepo,
		auditRepo:  auditRepo,
		logger:     log.WithComponent("policy_service"),
	}
}

func (s *policyAppServiceImpl) Upsert(ctx context.Context, tenantID string, req *dto.UpsertPolicyRequest) (*dto.PolicyResponse, error) {
	if req.Name == "" {
		return nil, errors.ErrInvalidRequest("name is required")
	}
	if req.Action.Playbook == "" {
		return nil, errors.ErrInvalidRequest("action.playbook is required")
	}
	if req.Match.MinConfidence < 0 || req.Match.MinConfidence > 100 {
		return nil, errors.ErrInvalidRequest("match.min_confidence must be in [0,100]")
	}

	now := time.Now().UTC()
	policy := &models.Policy{
		ID:        req.ID,
		TenantID:  tenantID,
		Name:      req.Name,
		Enabled:   true,
		Priority:  req.Priority,
		Match:     req.Match,
		Action:    req.Action,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	if req.Enabled != nil {
		policy.Enabled = *req.Enabled
	}

	if err := s.policyRepo.Upsert(ctx, policy); err != nil {
		s.logger.Error(ctx, "Policy upsert failed", err,
			logger.String("tenant_id", tenantID),
			logger.String("policy_id", policy.ID),
		)
		return nil, err
	}

	s.logger.Info(ctx, "Policy upserted",
		logger.String("tenant_id", tenantID),
		logger.String("policy_id", policy.ID),
		logger.String("name", policy.Name),
	)
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "policy_upsert", policy.ID)
	resp := dto.PolicyFromModel(policy)
	return &resp, nil
}

func (s *policyAppServiceImpl) Get(ctx context.Context, tenantID, policyID string) (*dto.PolicyResponse, error) {
	policy, err := s.policyRepo.FindByID(ctx, tenantID, policyID)
	if err != nil {
		return nil, err
	}
	resp := dto.PolicyFromModel(policy)
	return &resp, nil
}

func (s *policyAppServiceImpl) List(ctx context.Context, tenantID string) (*dto.ListPoliciesResponse, error) {
	policies, err := s.policyRepo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]dto.PolicyResponse, 0, len(policies))
	for _, p := range policies {
		views = append(views, dto.PolicyFromModel(p))
	}
	return &dto.ListPoliciesResponse{Policies: views}, nil
}

func (s *policyAppServiceImpl) Delete(ctx context.Context, tenantID, policyID string) error {
	found, err := s.policyRepo.Delete(ctx, tenantID, policyID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrPolicyNotFound(policyID)
	}
	s.logger.Info(ctx, "Policy deleted",
		logger.String("tenant_id", tenantID),
		logger.String("policy_id", policyID),
	)
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "policy_delete", policyID)
	return nil
}

// Seed loads bootstrap policies, leaving already-present IDs untouched.
func (s *policyAppServiceImpl) Seed(ctx context.Context, tenantID string, policies []*models.Policy) (int, error) {
	seeded := 0
	for _, p := range policies {
		if _, err := s.policyRepo.FindByID(ctx, tenantID, p.ID); err == nil {
			continue
		} else if !errors.IsNotFound(err) {
			return seeded, err
		}

		policy := *p
		policy.TenantID = tenantID
		if policy.CreatedAt.IsZero() {
			policy.CreatedAt = time.Now().UTC()
		}
		policy.UpdatedAt = time.Now().UTC()
		if err := s.policyRepo.Upsert(ctx, &policy); err != nil {
			return seeded, err
		}
		seeded++
	}
	if seeded > 0 {
		s.logger.Info(ctx, "Policies seeded",
			logger.String("tenant_id", tenantID),
			logger.Int("count", seeded),
		)
		recordAudit(ctx, s.auditRepo, s.logger, tenantID, "system", "policy_seed", fmt.Sprintf("%d policies", seeded))
	}
	return seeded, nil
}
