package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// StreamEvent is a fire-and-forget lifecycle event broadcast to tenant
// listeners (dashboard WebSocket clients, Kafka mirror). A slow listener
// never blocks the pipeline; its buffer drops the oldest event on overflow.
type StreamEvent struct {
	Type      constants.EventType    `json:"type"`
	TenantID  string                 `json:"tenant_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewStreamEvent builds a timestamped event.
func NewStreamEvent(eventType constants.EventType, tenantID string, data map[string]interface{}) StreamEvent {
	return StreamEvent{
		Type:      eventType,
		TenantID:  tenantID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// PipelineEvent records an external ETL pipeline run reported to the service.
// FAILED runs are folded into the next observation as change events.
type PipelineEvent struct {
	ID       string `json:"id" gorm:"primaryKey;column:id"`
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index:idx_pipeline_events_tenant"`

	Pipeline      string                      `json:"pipeline" gorm:"column:pipeline"`
	Status        constants.PipelineRunStatus `json:"status" gorm:"column:status"`
	RowsProcessed int64                       `json:"rows_processed" gorm:"column:rows_processed"`
	Detail        string                      `json:"detail,omitempty" gorm:"column:detail"`

	ReportedAt time.Time `json:"reported_at" gorm:"column:reported_at"`
}

// TableName maps the PipelineEvent model to its table.
func (PipelineEvent) TableName() string {
	return constants.TableNamePipelineEvents
}
