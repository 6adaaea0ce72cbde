package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// ApprovalToken gates a high-risk remediation action behind a human decision.
// A token is single-use: it is consumed by exactly one approve or reject
// operation, and an expired or consumed token can never authorize execution.
type ApprovalToken struct {
	TokenID    string `json:"token_id" gorm:"primaryKey;column:token_id"`
	TenantID   string `json:"tenant_id" gorm:"column:tenant_id;index:idx_approvals_tenant"`
	IncidentID string `json:"incident_id" gorm:"column:incident_id"`

	// Action is the playbook or operation awaiting approval.
	Action  string            `json:"action" gorm:"column:action"`
	Details map[string]string `json:"details,omitempty" gorm:"column:details;serializer:json"`

	Status constants.ApprovalStatus `json:"status" gorm:"column:status"`

	RequestedAt time.Time `json:"requested_at" gorm:"column:requested_at"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"column:expires_at"`

	DecidedBy       string     `json:"decided_by,omitempty" gorm:"column:decided_by"`
	DecisionComment string     `json:"decision_comment,omitempty" gorm:"column:decision_comment"`
	DecidedAt       *time.Time `json:"decided_at,omitempty" gorm:"column:decided_at"`
}

// TableName maps the ApprovalToken model to its table.
func (ApprovalToken) TableName() string {
	return constants.TableNameApprovals
}

// NewApprovalToken creates a pending token with the given TTL.
func NewApprovalToken(tokenID, tenantID, incidentID, action string, details map[string]string, ttl time.Duration) *ApprovalToken {
	now := time.Now().UTC()
	return &ApprovalToken{
		TokenID:     tokenID,
		TenantID:    tenantID,
		IncidentID:  incidentID,
		Action:      action,
		Details:     details,
		Status:      constants.ApprovalStatusPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
}

// IsExpired reports whether the token is past its TTL.
func (t *ApprovalToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsPending reports whether the token can still be consumed.
func (t *ApprovalToken) IsPending(now time.Time) bool {
	return t.Status == constants.ApprovalStatusPending && !t.IsExpired(now)
}

// Consume transitions a pending token to its terminal decision state.
func (t *ApprovalToken) Consume(status constants.ApprovalStatus, decidedBy, comment string, now time.Time) {
	t.Status = status
	t.DecidedBy = decidedBy
	t.DecisionComment = comment
	decided := now.UTC()
	t.DecidedAt = &decided
}
