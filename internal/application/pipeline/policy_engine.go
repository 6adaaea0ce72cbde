package pipeline

import (
	"context"
	"sort"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// PolicyEngine selects the remediation policy for a verified incident.
// Evaluation is a pure function over the loaded policy set: same incident,
// same policies, same answer, no side effects.
type PolicyEngine struct {
	policyRepo repository.PolicyRepository
	logger     logger.Logger
}

// NewPolicyEngine creates the policy engine stage.
func NewPolicyEngine(policyRepo repository.PolicyRepository, log logger.Logger) *PolicyEngine {
	return &PolicyEngine{
		policyRepo: policyRepo,
		logger:     log.WithComponent("policy"),
	}
}

// Evaluate loads the tenant's enabled policies and returns the winning match,
// or nil when no policy applies.
func (e *PolicyEngine) Evaluate(ctx context.Context, tenantID string, incidentType constants.IncidentType, confidence float64) (*models.Policy, error) {
	policies, err := e.policyRepo.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	match := MatchPolicy(policies, incidentType, confidence)
	if match == nil {
		e.logger.Info(ctx, "No policy matched",
			logger.String("tenant_id", tenantID),
			logger.String("incident_type", string(incidentType)),
			logger.Float64("confidence", confidence),
		)
		return nil, nil
	}

	e.logger.Info(ctx, "Policy matched",
		logger.String("tenant_id", tenantID),
		logger.String("policy_id", match.ID),
		logger.String("playbook", match.Action.Playbook),
		logger.Bool("require_approval", match.Action.RequireApproval),
	)
	return match, nil
}

// MatchPolicy picks the winning policy: lowest priority value first, then the
// more specific type match, then lexical ID order for a stable tie-break.
// An empty incident-type list matches any type.
func MatchPolicy(policies []*models.Policy, incidentType constants.IncidentType, confidence float64) *models.Policy {
	var candidates []*models.Policy
	for _, p := range policies {
		if p.Matches(incidentType, confidence) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		if candidates[i].Specificity() != candidates[j].Specificity() {
			return candidates[i].Specificity() > candidates[j].Specificity()
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}
