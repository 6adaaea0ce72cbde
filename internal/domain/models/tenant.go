// Package models defines the domain models for the Sentra reliability service.
// This file contains the Tenant domain model with business logic.
package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// TableConfig holds the per-table monitoring thresholds for a tenant.
// Tables without an entry fall back to the schema-driven defaults; an unknown
// table is never treated as always fresh.
type TableConfig struct {
	// ExpectedFreshnessMinutes is the maximum tolerated data age.
	ExpectedFreshnessMinutes int `json:"expected_freshness_minutes"`

	// NullRateDeltaThreshold is the tolerated rise over the rolling baseline.
	NullRateDeltaThreshold float64 `json:"null_rate_delta_threshold"`

	// RowCountDropRatio is the tolerated row-count drop vs baseline (0..1).
	RowCountDropRatio float64 `json:"row_count_drop_ratio"`
}

// TenantConfig is the tenant-scoped pipeline configuration.
type TenantConfig struct {
	// ConfidenceThreshold gates the VERIFIED verdict.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// AlertThreshold gates escalation.
	AlertThreshold float64 `json:"alert_threshold"`

	// CooldownWindow suppresses repeat (tenant, incident type) notifications.
	CooldownWindow time.Duration `json:"cooldown_window"`

	// Channels lists the enabled notification channels ("console", "slack").
	Channels []string `json:"channels,omitempty"`

	// SlackWebhookURL overrides the service-level webhook for this tenant.
	SlackWebhookURL string `json:"slack_webhook_url,omitempty"`

	// Tables holds per-table threshold overrides keyed by table name.
	Tables map[string]TableConfig `json:"tables,omitempty"`

	// MonitoredTables is the scan set for the observer.
	MonitoredTables []string `json:"monitored_tables,omitempty"`
}

// Tenant represents an isolated workspace. Each tenant owns its own incident
// history partition, policies, approval tokens and pipeline configuration.
type Tenant struct {
	TenantID   string                 `json:"tenant_id" gorm:"primaryKey;column:tenant_id"`
	TenantName string                 `json:"tenant_name" gorm:"column:tenant_name"`
	Status     constants.TenantStatus `json:"status" gorm:"column:status"`
	Config     TenantConfig           `json:"config" gorm:"column:config;serializer:json"`

	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"column:deleted_at"`
}

// TableName maps the Tenant model to its table.
func (Tenant) TableName() string {
	return constants.TableNameTenants
}

// NewTenant creates a new Tenant instance with sensible default thresholds.
func NewTenant(tenantID, tenantName string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		TenantID:   tenantID,
		TenantName: tenantName,
		Status:     constants.TenantStatusActive,
		Config: TenantConfig{
			ConfidenceThreshold: constants.DefaultConfidenceThreshold,
			AlertThreshold:      constants.DefaultAlertThreshold,
			CooldownWindow:      constants.DefaultCooldownWindow,
			Channels:            []string{"console"},
			MonitoredTables:     []string{"orders", "users", "inventory"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive checks if the tenant is active and not soft-deleted.
func (t *Tenant) IsActive() bool {
	return t.Status == constants.TenantStatusActive && t.DeletedAt == nil
}

// IsSuspended checks if the tenant is suspended.
func (t *Tenant) IsSuspended() bool {
	return t.Status == constants.TenantStatusSuspended
}

// Suspend changes the tenant's status to suspended. A suspended tenant cannot
// trigger cycles or mutate its history.
func (t *Tenant) Suspend() {
	t.Status = constants.TenantStatusSuspended
	t.UpdatedAt = time.Now().UTC()
}

// Activate reactivates a previously suspended or inactive tenant.
func (t *Tenant) Activate() {
	t.Status = constants.TenantStatusActive
	t.UpdatedAt = time.Now().UTC()
}

// SoftDelete marks the tenant as deleted by setting the DeletedAt timestamp.
func (t *Tenant) SoftDelete() {
	now := time.Now().UTC()
	t.DeletedAt = &now
	t.Status = constants.TenantStatusDeleted
	t.UpdatedAt = now
}

// TableThresholds resolves the monitoring thresholds for a table. Missing
// entries resolve to conservative schema-driven defaults.
func (t *Tenant) TableThresholds(table string) TableConfig {
	cfg, ok := t.Config.Tables[table]
	if !ok {
		cfg = TableConfig{}
	}
	if cfg.ExpectedFreshnessMinutes <= 0 {
		cfg.ExpectedFreshnessMinutes = constants.DefaultFreshnessMinutes
	}
	if cfg.NullRateDeltaThreshold <= 0 {
		cfg.NullRateDeltaThreshold = 0.10
	}
	if cfg.RowCountDropRatio <= 0 {
		cfg.RowCountDropRatio = 0.50
	}
	return cfg
}

// ConfidenceThreshold returns the tenant's VERIFIED gate with fallback.
func (t *Tenant) ConfidenceThreshold() float64 {
	if t.Config.ConfidenceThreshold > 0 {
		return t.Config.ConfidenceThreshold
	}
	return constants.DefaultConfidenceThreshold
}

// AlertThreshold returns the tenant's escalation gate with fallback.
func (t *Tenant) AlertThreshold() float64 {
	if t.Config.AlertThreshold > 0 {
		return t.Config.AlertThreshold
	}
	return constants.DefaultAlertThreshold
}

// CooldownWindow returns the tenant's notification cooldown with fallback.
func (t *Tenant) CooldownWindow() time.Duration {
	if t.Config.CooldownWindow > 0 {
		return t.Config.CooldownWindow
	}
	return constants.DefaultCooldownWindow
}

// Clone creates a deep copy of the Tenant. Cycle code works on clones so
// concurrent requests never mutate a cached tenant.
func (t *Tenant) Clone() *Tenant {
	clone := *t

	if len(t.Config.Channels) > 0 {
		clone.Config.Channels = append([]string(nil), t.Config.Channels...)
	}
	if len(t.Config.MonitoredTables) > 0 {
		clone.Config.MonitoredTables = append([]string(nil), t.Config.MonitoredTables...)
	}
	if len(t.Config.Tables) > 0 {
		clone.Config.Tables = make(map[string]TableConfig, len(t.Config.Tables))
		for k, v := range t.Config.Tables {
			clone.Config.Tables[k] = v
		}
	}
	return &clone
}
