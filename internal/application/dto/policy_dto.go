package dto

import (
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
)

// UpsertPolicyRequest creates or replaces a remediation policy.
type UpsertPolicyRequest struct {
	ID       string              `json:"id,omitempty"`
	Name     string              `json:"name" binding:"required"`
	Enabled  *bool               `json:"enabled,omitempty"`
	Priority int                 `json:"priority"`
	Match    models.PolicyMatch  `json:"match"`
	Action   models.PolicyAction `json:"action" binding:"required"`
}

// PolicyResponse is the policy view returned to admins.
type PolicyResponse struct {
	ID        string              `json:"id"`
	TenantID  string              `json:"tenant_id"`
	Name      string              `json:"name"`
	Enabled   bool                `json:"enabled"`
	Priority  int                 `json:"priority"`
	Match     models.PolicyMatch  `json:"match"`
	Action    models.PolicyAction `json:"action"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ListPoliciesResponse is the full policy listing for a tenant.
type ListPoliciesResponse struct {
	Policies []PolicyResponse `json:"policies"`
}

// PolicyFromModel converts a domain policy to its response view.
func PolicyFromModel(p *models.Policy) PolicyResponse {
	return PolicyResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Enabled:   p.Enabled,
		Priority:  p.Priority,
		Match:     p.Match,
		Action:    p.Action,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
