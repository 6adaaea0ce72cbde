package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// RemediationOutcome is the remediation engine's verdict for one incident.
type RemediationOutcome struct {
	// Executed is true when a playbook ran to completion (step failures
	// included; they are recorded, not rolled back).
	Executed bool

	// PendingToken is set when the action awaits a human decision.
	PendingToken *models.ApprovalToken

	// Actions are the recommended follow-ups for the incident record.
	Actions []string

	// StepResults holds the executed playbook step outcomes.
	StepResults []service.StepResult

	// Entries are the decision log entries produced by this stage.
	Entries []models.DecisionLogEntry
}

// RemediationEngine turns a matched policy into action: immediate playbook
// execution for low-risk cases, an approval token otherwise. An oracle risk
// assessment can force the approval path even when the policy does not.
type RemediationEngine struct {
	gateway      service.OracleGateway
	executor     service.PlaybookExecutor
	approvalRepo repository.ApprovalRepository
	incidentRepo repository.IncidentRepository
	approvalTTL  time.Duration
	logger       logger.Logger
}

// NewRemediationEngine creates the remediation stage.
func NewRemediationEngine(
	gateway service.OracleGateway,
	executor service.PlaybookExecutor,
	approvalRepo repository.ApprovalRepository,
	incidentRepo repository.IncidentRepository,
	approvalTTL time.Duration,
	log logger.Logger,
) *RemediationEngine {
	if approvalTTL <= 0 {
		approvalTTL = constants.DefaultApprovalTTL
	}
	return &RemediationEngine{
		gateway:      gateway,
		executor:     executor,
		approvalRepo: approvalRepo,
		incidentRepo: incidentRepo,
		approvalTTL:  approvalTTL,
		logger:       log.WithComponent("remediation"),
	}
}

// Remediate applies the matched policy to the incident.
func (e *RemediationEngine) Remediate(ctx context.Context, session *service.OracleSession, tenant *models.Tenant, incident *models.Incident, policy *models.Policy) (*RemediationOutcome, error) {
	outcome := &RemediationOutcome{}
	now := time.Now().UTC()

	requireApproval := policy.Action.RequireApproval
	risky, riskMeta := e.assessRisk(ctx, session, incident, policy)
	if risky && !requireApproval {
		e.logger.Info(ctx, "Risk assessment forced approval",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("incident_id", incident.ID),
			logger.String("playbook", policy.Action.Playbook),
		)
		requireApproval = true
	}
	outcome.Entries = append(outcome.Entries, models.DecisionLogEntry{
		Stage:   constants.StageRiskAssess,
		Summary: fmt.Sprintf("risk assessment for playbook %q: require_approval=%t", policy.Action.Playbook, requireApproval),
		Meta:    &riskMeta,
		At:      now,
	})

	if requireApproval {
		token := models.NewApprovalToken(
			uuid.NewString(),
			tenant.TenantID,
			incident.ID,
			policy.Action.Playbook,
			map[string]string{
				"target":    incident.Source,
				"policy_id": policy.ID,
			},
			e.approvalTTL,
		)
		if err := e.approvalRepo.Save(ctx, token); err != nil {
			return nil, err
		}
		outcome.PendingToken = token
		outcome.Actions = append(outcome.Actions,
			fmt.Sprintf("approve or reject token %s to run playbook %q", token.TokenID, policy.Action.Playbook))
		outcome.Entries = append(outcome.Entries, models.DecisionLogEntry{
			Stage:   constants.StageRemediation,
			Summary: fmt.Sprintf("approval token %s issued for playbook %q (expires %s)", token.TokenID, policy.Action.Playbook, token.ExpiresAt.Format(time.RFC3339)),
			At:      time.Now().UTC(),
		})
		return outcome, nil
	}

	results, err := e.executor.Execute(ctx, tenant.TenantID, policy.Action.Playbook, map[string]string{
		"target": incident.Source,
	})
	outcome.StepResults = results
	outcome.Executed = err == nil
	outcome.Entries = append(outcome.Entries, models.DecisionLogEntry{
		Stage:   constants.StageRemediation,
		Summary: summarizeSteps(policy.Action.Playbook, results, err),
		At:      time.Now().UTC(),
	})
	outcome.Actions = append(outcome.Actions, fmt.Sprintf("playbook %q executed", policy.Action.Playbook))
	if err != nil {
		// The failure is part of the record; the incident itself stands.
		e.logger.Warn(ctx, "Playbook execution failed",
			logger.String("tenant_id", tenant.TenantID),
			logger.String("incident_id", incident.ID),
			logger.String("playbook", policy.Action.Playbook),
			logger.String("error", err.Error()),
		)
	}
	return outcome, nil
}

// DecideApproval consumes an approval token. Approval executes the playbook
// and appends the results to the incident; rejection just closes the token.
// Expired and already-consumed tokens can never authorize execution.
func (e *RemediationEngine) DecideApproval(ctx context.Context, tenantID, tokenID string, approve bool, decidedBy, comment string) (*models.ApprovalToken, []service.StepResult, error) {
	token, err := e.approvalRepo.FindByID(ctx, tenantID, tokenID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	if token.IsExpired(now) {
		if token.Status == constants.ApprovalStatusPending {
			expired := *token
			expired.Consume(constants.ApprovalStatusExpired, "system", "expired before decision", now)
			_, _ = e.approvalRepo.ConsumePending(ctx, &expired)
		}
		return nil, nil, errors.ErrTokenExpired(tokenID)
	}
	if token.Status != constants.ApprovalStatusPending {
		return nil, nil, errors.ErrTokenInvalid(tokenID)
	}

	status := constants.ApprovalStatusRejected
	if approve {
		status = constants.ApprovalStatusApproved
	}
	decided := *token
	decided.Consume(status, decidedBy, comment, now)

	won, err := e.approvalRepo.ConsumePending(ctx, &decided)
	if err != nil {
		return nil, nil, err
	}
	if !won {
		// A concurrent decision consumed the token first.
		return nil, nil, errors.ErrTokenInvalid(tokenID)
	}

	if !approve {
		e.appendDecision(ctx, tenantID, &decided, nil, "rejected")
		return &decided, nil, nil
	}

	results, execErr := e.executor.Execute(ctx, tenantID, decided.Action, decided.Details)
	e.appendDecision(ctx, tenantID, &decided, results, "approved")
	if execErr != nil {
		e.logger.Warn(ctx, "Approved playbook failed",
			logger.String("tenant_id", tenantID),
			logger.String("token_id", tokenID),
			logger.String("playbook", decided.Action),
			logger.String("error", execErr.Error()),
		)
	}
	return &decided, results, nil
}

// SweepExpired marks overdue pending tokens expired.
func (e *RemediationEngine) SweepExpired(ctx context.Context) (int64, error) {
	return e.approvalRepo.ExpireOlderThan(ctx, time.Now().UTC())
}

func (e *RemediationEngine) appendDecision(ctx context.Context, tenantID string, token *models.ApprovalToken, results []service.StepResult, verdict string) {
	if token.IncidentID == "" {
		return
	}
	summary := fmt.Sprintf("approval token %s %s by %s", token.TokenID, verdict, token.DecidedBy)
	if len(results) > 0 {
		summary += "; " + summarizeSteps(token.Action, results, nil)
	}
	err := e.incidentRepo.UpdateRemediation(ctx, tenantID, token.IncidentID,
		[]string{fmt.Sprintf("playbook %q %s", token.Action, verdict)},
		[]models.DecisionLogEntry{{
			Stage:   constants.StageRemediation,
			Summary: summary,
			At:      time.Now().UTC(),
		}},
	)
	if err != nil {
		e.logger.Warn(ctx, "Failed to append approval outcome to incident",
			logger.String("tenant_id", tenantID),
			logger.String("incident_id", token.IncidentID),
			logger.String("error", err.Error()),
		)
	}
}

// assessRisk asks the oracle whether the playbook is safe to run unattended.
// The deterministic fallback forces approval for critical-confidence
// incidents and destructive playbooks.
func (e *RemediationEngine) assessRisk(ctx context.Context, session *service.OracleSession, incident *models.Incident, policy *models.Policy) (bool, models.OracleMeta) {
	prompt := fmt.Sprintf(
		"Assess the risk of automatically running playbook %q for incident type %s (confidence %.0f, source %s).\n"+
			`Answer as JSON: {"require_approval": bool, "reason": string}`,
		policy.Action.Playbook, incident.Type, incident.FinalConfidenceScore, incident.Source)

	resp, err := e.gateway.Generate(ctx, session, service.OracleRequest{
		Stage:  constants.StageRiskAssess,
		Prompt: prompt,
		Fallback: func() (map[string]interface{}, error) {
			destructive := strings.Contains(policy.Action.Playbook, "quarantine") ||
				strings.Contains(policy.Action.Playbook, "rollback")
			return map[string]interface{}{
				"require_approval": destructive || incident.IsCritical(),
				"reason":           "deterministic risk floor",
			}, nil
		},
	})
	if err != nil {
		// Failing open on risk would be the wrong direction.
		return true, models.OracleMeta{Provider: constants.OracleFallbackProvider, Timestamp: time.Now().UTC()}
	}
	required, _ := resp.Result["require_approval"].(bool)
	return required, resp.Meta
}

func summarizeSteps(playbook string, results []service.StepResult, err error) string {
	ok, failed := 0, 0
	for _, r := range results {
		if r.Status == "ok" {
			ok++
		} else {
			failed++
		}
	}
	s := fmt.Sprintf("playbook %q: %d steps ok, %d failed", playbook, ok, failed)
	if err != nil {
		s += "; error: " + err.Error()
	}
	return s
}
