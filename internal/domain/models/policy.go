package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// PolicyMatch is the deterministic match criteria of a remediation policy.
type PolicyMatch struct {
	// IncidentTypes restricts the policy to these types. Empty means wildcard.
	IncidentTypes []constants.IncidentType `json:"incident_types,omitempty"`

	// MinConfidence is the confidence floor for the policy to apply.
	MinConfidence float64 `json:"min_confidence"`
}

// PolicyAction is what a matched policy prescribes.
type PolicyAction struct {
	// Playbook names the remediation playbook to execute.
	Playbook string `json:"playbook"`

	// RequireApproval forces an approval token before execution.
	RequireApproval bool `json:"require_approval"`
}

// Policy is a tenant-scoped remediation rule. Evaluation is read-only and
// deterministic; policies mutate only through admin upsert/delete.
type Policy struct {
	ID       string `json:"id" gorm:"primaryKey;column:id"`
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index:idx_policies_tenant"`
	Name     string `json:"name" gorm:"column:name"`
	Enabled  bool   `json:"enabled" gorm:"column:enabled"`

	// Priority orders evaluation; lower values evaluate first.
	Priority int `json:"priority" gorm:"column:priority"`

	Match  PolicyMatch  `json:"match" gorm:"column:match;serializer:json"`
	Action PolicyAction `json:"action" gorm:"column:action;serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName maps the Policy model to its table.
func (Policy) TableName() string {
	return constants.TableNamePolicies
}

// Matches reports whether the policy applies to the incident. An empty
// incident-type list is a wildcard.
func (p *Policy) Matches(incidentType constants.IncidentType, confidence float64) bool {
	if !p.Enabled {
		return false
	}
	if confidence < p.Match.MinConfidence {
		return false
	}
	if len(p.Match.IncidentTypes) == 0 {
		return true
	}
	for _, t := range p.Match.IncidentTypes {
		if t == incidentType {
			return true
		}
	}
	return false
}

// Specificity ranks how constrained the match is; more constrained wins ties.
// A wildcard has the lowest specificity.
func (p *Policy) Specificity() int {
	if len(p.Match.IncidentTypes) == 0 {
		return 0
	}
	// Fewer listed types is more specific.
	return 1000 - len(p.Match.IncidentTypes)
}
