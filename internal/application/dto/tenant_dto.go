// Package dto provides data transfer objects for the application layer.
package dto

import (
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
)

// CreateTenantRequest creates a new isolated workspace.
type CreateTenantRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name" binding:"required"`
}

// UpdateTenantConfigRequest patches a tenant's pipeline configuration. Nil
// fields are left untouched.
type UpdateTenantConfigRequest struct {
	ConfidenceThreshold *float64                       `json:"confidence_threshold,omitempty"`
	AlertThreshold      *float64                       `json:"alert_threshold,omitempty"`
	CooldownSeconds     *int                           `json:"cooldown_seconds,omitempty"`
	Channels            []string                       `json:"channels,omitempty"`
	SlackWebhookURL     *string                        `json:"slack_webhook_url,omitempty"`
	MonitoredTables     []string                       `json:"monitored_tables,omitempty"`
	Tables              map[string]models.TableConfig  `json:"tables,omitempty"`
}

// UpdateTenantStatusRequest changes a tenant's lifecycle status.
type UpdateTenantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TenantResponse is the full tenant view returned to admins.
type TenantResponse struct {
	TenantID  string              `json:"tenant_id"`
	Name      string              `json:"name"`
	Status    string              `json:"status"`
	Config    models.TenantConfig `json:"config"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// TenantInfo is the compact tenant view used in listings.
type TenantInfo struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTenantsRequest pages through tenants.
type ListTenantsRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// ListTenantsResponse is the paged tenant listing.
type ListTenantsResponse struct {
	Tenants []TenantInfo `json:"tenants"`
	Total   int64        `json:"total"`
}

// TenantFromModel converts a domain tenant to its response view.
func TenantFromModel(t *models.Tenant) *TenantResponse {
	return &TenantResponse{
		TenantID:  t.TenantID,
		Name:      t.TenantName,
		Status:    string(t.Status),
		Config:    t.Config,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
