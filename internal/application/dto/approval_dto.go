package dto

import (
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
)

// ApprovalDecisionRequest approves or rejects a pending token.
type ApprovalDecisionRequest struct {
	Approve   bool   `json:"approve"`
	DecidedBy string `json:"decided_by" binding:"required"`
	Comment   string `json:"comment,omitempty"`
}

// ApprovalResponse is the token view returned to admins.
type ApprovalResponse struct {
	TokenID     string            `json:"token_id"`
	IncidentID  string            `json:"incident_id"`
	Action      string            `json:"action"`
	Details     map[string]string `json:"details,omitempty"`
	Status      string            `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	DecidedBy   string            `json:"decided_by,omitempty"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

// ApprovalDecisionResponse reports the decided token and, for approvals, the
// playbook step outcomes.
type ApprovalDecisionResponse struct {
	Token ApprovalResponse     `json:"token"`
	Steps []service.StepResult `json:"steps,omitempty"`
}

// ListApprovalsResponse lists the tenant's pending tokens.
type ListApprovalsResponse struct {
	Approvals []ApprovalResponse `json:"approvals"`
}

// ApprovalFromModel converts a domain token to its response view.
func ApprovalFromModel(t *models.ApprovalToken) ApprovalResponse {
	return ApprovalResponse{
		TokenID:     t.TokenID,
		IncidentID:  t.IncidentID,
		Action:      t.Action,
		Details:     t.Details,
		Status:      string(t.Status),
		RequestedAt: t.RequestedAt,
		ExpiresAt:   t.ExpiresAt,
		DecidedBy:   t.DecidedBy,
		DecidedAt:   t.DecidedAt,
	}
}
