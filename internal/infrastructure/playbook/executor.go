// Package playbook implements the remediation playbook registry and executor.
// Playbooks are simulated actions: each step reports what a production
// integration would have done. Step failures are recorded in the results and
// never roll back previously completed steps.
package playbook

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// Executor implements service.PlaybookExecutor over a named registry.
type Executor struct {
	mu        sync.RWMutex
	playbooks map[string]service.Playbook
	logger    logger.Logger
}

// NewExecutor creates an executor pre-loaded with the built-in playbooks.
func NewExecutor(log logger.Logger) *Executor {
	e := &Executor{
		playbooks: make(map[string]service.Playbook),
		logger:    log.WithComponent("playbook"),
	}
	for _, pb := range builtinPlaybooks() {
		e.playbooks[pb.Name] = pb
	}
	return e
}

var _ service.PlaybookExecutor = (*Executor)(nil)

// Register adds or replaces a playbook.
func (e *Executor) Register(pb service.Playbook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playbooks[pb.Name] = pb
}

// Names returns the registered playbook names, sorted.
func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.playbooks))
	for name := range e.playbooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named playbook step by step. A failed step is recorded and
// execution continues; the caller appends the results to the incident record.
func (e *Executor) Execute(ctx context.Context, tenantID, playbook string, params map[string]string) ([]service.StepResult, error) {
	e.mu.RLock()
	pb, ok := e.playbooks[playbook]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown playbook %q", playbook)
	}

	e.logger.Info(ctx, "Executing playbook",
		logger.String("tenant_id", tenantID),
		logger.String("playbook", playbook),
		logger.Int("steps", len(pb.Steps)),
	)

	results := make([]service.StepResult, 0, len(pb.Steps))
	for _, step := range pb.Steps {
		select {
		case <-ctx.Done():
			results = append(results, service.StepResult{
				Step:   step.Name,
				Status: "failed",
				Detail: "cancelled: " + ctx.Err().Error(),
			})
			return results, ctx.Err()
		default:
		}

		detail, err := e.runStep(ctx, tenantID, step, params)
		if err != nil {
			e.logger.Warn(ctx, "Playbook step failed",
				logger.String("playbook", playbook),
				logger.String("step", step.Name),
				logger.String("error", err.Error()),
			)
			results = append(results, service.StepResult{
				Step:   step.Name,
				Status: "failed",
				Detail: err.Error(),
			})
			continue
		}
		results = append(results, service.StepResult{
			Step:   step.Name,
			Status: "ok",
			Detail: detail,
		})
	}
	return results, nil
}

// runStep simulates one remediation action.
func (e *Executor) runStep(_ context.Context, tenantID string, step service.PlaybookStep, params map[string]string) (string, error) {
	target := params["target"]
	if target == "" {
		target = step.Params["target"]
	}

	switch step.Action {
	case "pause_pipeline":
		return fmt.Sprintf("pipeline for %q paused for tenant %s", target, tenantID), nil
	case "rerun_job":
		return fmt.Sprintf("re-run of job %q scheduled at %s", target, time.Now().UTC().Format(time.RFC3339)), nil
	case "quarantine_rows":
		return fmt.Sprintf("defective rows of %q moved to quarantine partition", target), nil
	case "open_ticket":
		return fmt.Sprintf("follow-up ticket opened for %q", target), nil
	case "rollback_mapping":
		return fmt.Sprintf("field mapping for %q rolled back to previous release", target), nil
	default:
		return "", fmt.Errorf("unsupported action %q", step.Action)
	}
}

func builtinPlaybooks() []service.Playbook {
	return []service.Playbook{
		{
			Name:        "rerun_etl_job",
			Description: "Pause the affected pipeline, re-run the load, open a follow-up ticket.",
			Steps: []service.PlaybookStep{
				{Name: "pause", Action: "pause_pipeline"},
				{Name: "rerun", Action: "rerun_job"},
				{Name: "ticket", Action: "open_ticket"},
			},
		},
		{
			Name:        "rollback_field_mapping",
			Description: "Restore the previous ETL field mapping and re-run the load.",
			Steps: []service.PlaybookStep{
				{Name: "rollback", Action: "rollback_mapping"},
				{Name: "rerun", Action: "rerun_job"},
			},
		},
		{
			Name:        "quarantine_bad_rows",
			Description: "Move rows failing integrity checks to a quarantine partition.",
			Steps: []service.PlaybookStep{
				{Name: "quarantine", Action: "quarantine_rows"},
				{Name: "ticket", Action: "open_ticket"},
			},
		},
	}
}
