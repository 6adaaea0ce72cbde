// Package models defines the domain models for the Sentra reliability service.
// This file contains the Incident aggregate and the supporting pipeline types.
package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// Hypothesis is a root-cause claim produced by the causal reasoner, ranked by
// confidence. The investigator executes its plan in order.
type Hypothesis struct {
	// ID matches ^H\d+$ (H1, H2, ...) within a cycle.
	ID string `json:"id"`

	// Description is the natural-language root-cause claim.
	Description string `json:"description"`

	// SupportingEvidence lists the observation facts the reasoner leaned on.
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`

	// ConfidenceScore is the reasoner's prior in [0,100].
	ConfidenceScore float64 `json:"confidence_score"`

	// InvestigationPlan is the ordered list of tool invocations to execute.
	InvestigationPlan []InvestigationStep `json:"investigation_plan"`
}

// InvestigationStep is a single planned tool invocation.
type InvestigationStep struct {
	StepID string            `json:"step_id"`
	Action string            `json:"action"` // tool name
	Target string            `json:"target"` // table, service or repo the tool inspects
	Args   map[string]string `json:"args,omitempty"`
}

// EvidenceEntry records the outcome of one investigation step. A failed step
// keeps its slot in the chain with Error set; prior results stay valid.
type EvidenceEntry struct {
	StepID   string    `json:"step_id"`
	Tool     string    `json:"tool"`
	Target   string    `json:"target"`
	Evidence string    `json:"evidence,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Succeeded reports whether the step produced usable evidence.
func (e EvidenceEntry) Succeeded() bool {
	return e.Error == "" && e.Evidence != ""
}

// EvidenceChain is the ordered, partial-failure-tolerant record of an
// investigation. Partial chains are valid.
type EvidenceChain []EvidenceEntry

// UsableCount returns the number of steps that produced evidence.
func (c EvidenceChain) UsableCount() int {
	n := 0
	for _, e := range c {
		if e.Succeeded() {
			n++
		}
	}
	return n
}

// FailedCount returns the number of steps recorded with an error.
func (c EvidenceChain) FailedCount() int {
	n := 0
	for _, e := range c {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// VerificationResult is the verifier's verdict on a hypothesis.
type VerificationResult struct {
	IsVerified             bool                         `json:"is_verified"`
	VerificationConfidence float64                      `json:"verification_confidence"` // [0,100]
	Status                 constants.VerificationStatus `json:"status"`
	EvidenceSummary        string                       `json:"evidence_summary,omitempty"`
	Summary                string                       `json:"summary"`
}

// OracleMeta is the provenance metadata attached to every oracle gateway call.
// It becomes DecisionLogEntry.Meta and is the audit trail for reasoning cost.
type OracleMeta struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	LatencyMS  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	APIUsed    bool      `json:"api_used"`
	PromptHash string    `json:"prompt_hash,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DecisionLogEntry records one pipeline stage decision. Entries are append-only
// and ordered by stage execution time; they are never mutated after append.
type DecisionLogEntry struct {
	Stage   constants.Stage `json:"stage"`
	Summary string          `json:"summary"`
	Meta    *OracleMeta     `json:"meta,omitempty"`
	At      time.Time       `json:"at"`
}

// Incident is the aggregate root persisted by the historian. A cycle either
// produces one complete Incident record or none.
type Incident struct {
	ID       string `json:"id" gorm:"primaryKey;column:id"`
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index:idx_incidents_tenant"`
	CycleID  string `json:"cycle_id" gorm:"column:cycle_id"`

	Type   constants.IncidentType   `json:"type" gorm:"column:type"`
	Status constants.IncidentStatus `json:"status" gorm:"column:status"`

	// Archived is orthogonal to Status: archiving resolves an incident
	// without erasing how it terminated.
	Archived bool `json:"archived" gorm:"column:archived"`

	// FinalConfidenceScore is the terminal confidence in [0,100].
	FinalConfidenceScore float64 `json:"final_confidence_score" gorm:"column:final_confidence_score"`

	Source string `json:"source" gorm:"column:source"` // offending table/service

	Hypothesis         *Hypothesis         `json:"hypothesis,omitempty" gorm:"column:hypothesis;serializer:json"`
	EvidenceChain      EvidenceChain       `json:"evidence_chain,omitempty" gorm:"column:evidence_chain;serializer:json"`
	VerificationResult *VerificationResult `json:"verification_result,omitempty" gorm:"column:verification_result;serializer:json"`
	DecisionLog        []DecisionLogEntry  `json:"decision_log" gorm:"column:decision_log;serializer:json"`
	RecommendedActions []string            `json:"recommended_actions,omitempty" gorm:"column:recommended_actions;serializer:json"`

	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
}

// TableName maps the Incident aggregate to its table.
func (Incident) TableName() string {
	return constants.TableNameIncidents
}

// IsCritical reports whether the incident counts as critical in aggregates.
func (i *Incident) IsCritical() bool {
	return i.FinalConfidenceScore >= constants.CriticalConfidenceFloor
}

// Archive marks the incident resolved and stamps ResolvedAt. Idempotent.
func (i *Incident) Archive(now time.Time) {
	if i.Archived {
		return
	}
	i.Archived = true
	i.Status = constants.IncidentStatusResolved
	t := now.UTC()
	i.ResolvedAt = &t
}

// TimeToResolve returns the detected-to-resolved duration, or false when the
// incident is still open. Only archived incidents contribute to MTTR.
func (i *Incident) TimeToResolve() (time.Duration, bool) {
	if !i.Archived || i.ResolvedAt == nil {
		return 0, false
	}
	return i.ResolvedAt.Sub(i.CreatedAt), true
}

// ClampConfidence bounds a confidence value to [0,100].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
