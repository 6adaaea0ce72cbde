package models

import (
	"time"

	"github.com/turtacn/sentra/pkg/constants"
)

// PatternInsight is a derived chronic-offender record produced by the
// meta-learner. It is read-only context for future triage: a recurring
// (source, incident type) pair raises triage priority.
type PatternInsight struct {
	ID       string `json:"id" gorm:"primaryKey;column:id"`
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;index:idx_insights_tenant"`

	Source       string                 `json:"source" gorm:"column:source"`
	IncidentType constants.IncidentType `json:"incident_type" gorm:"column:incident_type"`

	// Frequency counts incidents matching the pair within the analysis window.
	Frequency int `json:"frequency" gorm:"column:frequency"`

	// PatternSignature identifies the pair for upserts.
	PatternSignature string `json:"pattern_signature" gorm:"column:pattern_signature;index:idx_insights_signature"`

	// Recommendation is the tiered follow-up: "critical", "review", "monitor".
	Recommendation string `json:"recommendation" gorm:"column:recommendation"`

	AnalyzedAt time.Time `json:"analyzed_at" gorm:"column:analyzed_at"`
}

// TableName maps the PatternInsight model to its table.
func (PatternInsight) TableName() string {
	return constants.TableNameInsights
}

// RecommendationForFrequency maps recurrence counts to follow-up tiers.
func RecommendationForFrequency(freq int) string {
	switch {
	case freq >= 3:
		return "critical"
	case freq >= 2:
		return "review"
	default:
		return "monitor"
	}
}
