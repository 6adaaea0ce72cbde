package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/sentra/pkg/constants"
)

// AuditEvent records an admin or pipeline mutation for the tenant audit trail.
// Rows are append-only.
type AuditEvent struct {
	EventID  string `json:"event_id" gorm:"primaryKey;column:event_id"`
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index:idx_audit_tenant"`

	// Actor is who performed the action (user, "system", or a cycle ID).
	Actor string `json:"actor" gorm:"column:actor"`

	// Action names the mutation ("policy_upsert", "incident_archive",
	// "approval_decided", "tenant_suspend", ...).
	Action string `json:"action" gorm:"column:action"`

	TraceID  string          `json:"trace_id,omitempty" gorm:"column:trace_id"`
	Detail   string          `json:"detail,omitempty" gorm:"column:detail"`
	Metadata json.RawMessage `json:"metadata,omitempty" gorm:"column:metadata"`

	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp"`
}

// TableName maps the AuditEvent model to its table.
func (AuditEvent) TableName() string {
	return constants.TableNameAuditEvents
}

// NewAuditEvent creates an audit event stamped with a fresh ID.
func NewAuditEvent(tenantID, actor, action, detail string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.NewString(),
		TenantID:  tenantID,
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata attaches structured metadata to the event.
func (a *AuditEvent) WithMetadata(meta interface{}) *AuditEvent {
	if raw, err := json.Marshal(meta); err == nil {
		a.Metadata = raw
	}
	return a
}
