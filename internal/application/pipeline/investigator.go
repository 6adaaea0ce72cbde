package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// Investigator executes a hypothesis's investigation plan step by step. Each
// step runs in isolation: a failing or panicking tool records an error entry
// in the chain and never invalidates evidence already collected.
type Investigator struct {
	registry service.ToolRegistry
	logger   logger.Logger
}

// NewInvestigator creates the investigator stage.
func NewInvestigator(registry service.ToolRegistry, log logger.Logger) *Investigator {
	return &Investigator{
		registry: registry,
		logger:   log.WithComponent("investigator"),
	}
}

// Investigate runs the plan and returns the evidence chain. The chain always
// has one entry per plan step, in order.
func (inv *Investigator) Investigate(ctx context.Context, tenant *models.Tenant, obs *Observation, hypothesis models.Hypothesis) models.EvidenceChain {
	chain := make(models.EvidenceChain, 0, len(hypothesis.InvestigationPlan))

	for _, step := range hypothesis.InvestigationPlan {
		select {
		case <-ctx.Done():
			chain = append(chain, models.EvidenceEntry{
				StepID: step.StepID,
				Tool:   step.Action,
				Target: step.Target,
				Error:  "cancelled: " + ctx.Err().Error(),
				At:     time.Now().UTC(),
			})
			return chain
		default:
		}

		entry := inv.runStep(ctx, tenant, obs, hypothesis, step)
		chain = append(chain, entry)

		if entry.Error != "" {
			inv.logger.Warn(ctx, "Investigation step failed",
				logger.String("tenant_id", tenant.TenantID),
				logger.String("hypothesis_id", hypothesis.ID),
				logger.String("step_id", step.StepID),
				logger.String("tool", step.Action),
				logger.String("error", entry.Error),
			)
		}
	}

	inv.logger.Info(ctx, "Investigation completed",
		logger.String("tenant_id", tenant.TenantID),
		logger.String("hypothesis_id", hypothesis.ID),
		logger.Int("steps", len(chain)),
		logger.Int("usable", chain.UsableCount()),
		logger.Int("failed", chain.FailedCount()),
	)
	return chain
}

// runStep resolves and invokes one tool, converting panics into step errors.
func (inv *Investigator) runStep(ctx context.Context, tenant *models.Tenant, obs *Observation, hypothesis models.Hypothesis, step models.InvestigationStep) (entry models.EvidenceEntry) {
	entry = models.EvidenceEntry{
		StepID: step.StepID,
		Tool:   step.Action,
		Target: step.Target,
		At:     time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			entry.Evidence = ""
			entry.Error = fmt.Sprintf("tool panicked: %v", r)
		}
	}()

	tool, ok := inv.registry.Lookup(step.Action)
	if !ok {
		entry.Error = fmt.Sprintf("unknown tool %q (available: %v)", step.Action, inv.registry.Names())
		return entry
	}

	evidence, err := tool.Invoke(ctx, service.ToolContext{
		Tenant:      tenant,
		Step:        step,
		Observation: obs.Package,
		Hypothesis:  hypothesis,
	})
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	if evidence == "" {
		entry.Error = "tool returned no evidence"
		return entry
	}

	entry.Evidence = evidence
	return entry
}
