// Package service defines the domain capability interfaces the pipeline is
// built against. Concrete implementations live under internal/infrastructure
// and are selected via dependency injection, never hardcoded.
package service

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
)

// ================================================================================
// Metrics Source
// ================================================================================

// MetricsSource supplies table/column statistics and recent change history.
// Snapshot tolerates per-table partial failure: a failed table is recorded in
// the package's SkippedSources and the scan continues.
type MetricsSource interface {
	// Snapshot builds a fresh, independent ObservationPackage for the tenant.
	// The returned value never aliases internal state.
	Snapshot(ctx context.Context, tenant *models.Tenant, tables []string) (models.ObservationPackage, error)
}

// ================================================================================
// Reasoning Oracle
// ================================================================================

// OracleRequest is a structured-JSON inference request.
type OracleRequest struct {
	Stage  constants.Stage
	Prompt string

	// Fallback computes the deterministic local response used when the
	// oracle is unavailable, over budget, or times out.
	Fallback func() (map[string]interface{}, error)
}

// OracleResponse pairs the structured result with provenance metadata.
type OracleResponse struct {
	Result map[string]interface{}
	Meta   models.OracleMeta
}

// ReasoningOracle is the raw external inference capability. It is stateless;
// all caching, budgeting and fallback live in the gateway.
type ReasoningOracle interface {
	// Infer sends a prompt and parses the structured JSON response.
	Infer(ctx context.Context, stage constants.Stage, prompt string) (map[string]interface{}, models.OracleMeta, error)

	// Available reports whether credentials are configured.
	Available() bool
}

// OracleSession carries the per-cycle budget counters. Sessions are never
// shared across tenants or cycles.
type OracleSession struct {
	TraceID   string
	TenantID  string
	CallCount int
	CacheHits int
}

// OracleGateway wraps the oracle with a fingerprint cache, a bounded
// per-cycle budget, and a deterministic fallback. Every call yields an
// OracleMeta destined for the incident decision log.
type OracleGateway interface {
	// Generate resolves a request through cache, budget and oracle; on any
	// oracle failure it returns the request's fallback with APIUsed=false.
	Generate(ctx context.Context, session *OracleSession, req OracleRequest) (*OracleResponse, error)
}

// ================================================================================
// Semantic Comparison
// ================================================================================

// SemanticComparator scores how strongly an evidence chain supports a
// hypothesis. Implementations must treat renamings such as sourceId vs
// source_id as equivalent; literal substring checks are not acceptable.
type SemanticComparator interface {
	Compare(ctx context.Context, session *OracleSession, hypothesis models.Hypothesis, chain models.EvidenceChain) (*models.VerificationResult, models.OracleMeta, error)
}

// ================================================================================
// Investigation Tools
// ================================================================================

// ToolContext is the input to a single investigation step.
type ToolContext struct {
	Tenant      *models.Tenant
	Step        models.InvestigationStep
	Observation models.ObservationPackage
	Hypothesis  models.Hypothesis
}

// InvestigationTool is one evidence-gathering capability (git diff, ETL
// mapping check, baseline monitor). Tools are registered by name and resolved
// per plan step.
type InvestigationTool interface {
	// Name is the action string plans refer to.
	Name() string

	// Invoke runs the step and returns collected evidence text.
	Invoke(ctx context.Context, tc ToolContext) (string, error)
}

// ToolRegistry resolves tools by name.
type ToolRegistry interface {
	Lookup(name string) (InvestigationTool, bool)
	Names() []string
}

// ================================================================================
// Notification
// ================================================================================

// Notification is a rendered alert ready for delivery.
type Notification struct {
	TenantID   string
	Level      constants.AlertLevel
	Title      string
	Body       string
	IncidentID string
}

// NotificationChannel delivers notifications to one transport. Delivery
// failures are retried with bounded backoff by the escalator.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// CooldownStore tracks per-(tenant, incident type) notification suppression.
type CooldownStore interface {
	// Acquire returns true when no cooldown is active and starts a new
	// window; false means the send must be suppressed (and logged).
	Acquire(ctx context.Context, tenantID string, incidentType constants.IncidentType, window time.Duration) (bool, error)
}

// ================================================================================
// Event Publishing
// ================================================================================

// EventPublisher broadcasts lifecycle events. Implementations must be
// non-blocking toward the pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event models.StreamEvent)
}

// ================================================================================
// Playbooks
// ================================================================================

// PlaybookStep is one action of a remediation playbook.
type PlaybookStep struct {
	Name   string            `json:"name"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

// Playbook is a named remediation procedure.
type Playbook struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Steps       []PlaybookStep `json:"steps"`
}

// StepResult records one executed playbook step.
type StepResult struct {
	Step   string `json:"step"`
	Status string `json:"status"` // "ok" or "failed"
	Detail string `json:"detail,omitempty"`
}

// PlaybookExecutor runs playbooks. Execution failures are reported, appended
// to the incident decision log, and never roll back the incident record.
type PlaybookExecutor interface {
	Execute(ctx context.Context, tenantID, playbook string, params map[string]string) ([]StepResult, error)
}

// ================================================================================
// Cycle Lease
// ================================================================================

// CycleLease enforces at most one active cycle per tenant.
type CycleLease interface {
	// TryAcquire returns false when the tenant's cycle slot is busy.
	TryAcquire(ctx context.Context, tenantID string) (bool, error)

	// Release frees the tenant's cycle slot.
	Release(ctx context.Context, tenantID string) error
}
