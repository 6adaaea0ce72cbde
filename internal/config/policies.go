package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
)

// policyFileEntry is the on-disk shape of one seeded policy.
type policyFileEntry struct {
	ID              string   `mapstructure:"id"`
	Name            string   `mapstructure:"name"`
	Enabled         *bool    `mapstructure:"enabled"`
	Priority        int      `mapstructure:"priority"`
	IncidentTypes   []string `mapstructure:"incident_types"`
	MinConfidence   float64  `mapstructure:"min_confidence"`
	Playbook        string   `mapstructure:"playbook"`
	RequireApproval bool     `mapstructure:"require_approval"`
}

// LoadPoliciesFile reads a YAML policy seed file. The policies are loaded
// into tenants that have none at startup.
func LoadPoliciesFile(path string) ([]*models.Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read policies file %s: %w", path, err)
	}

	var entries []policyFileEntry
	if err := v.UnmarshalKey("policies", &entries); err != nil {
		return nil, fmt.Errorf("parse policies file %s: %w", path, err)
	}

	policies := make([]*models.Policy, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("policies[%d]: id is required", i)
		}
		if e.Playbook == "" {
			return nil, fmt.Errorf("policies[%d]: playbook is required", i)
		}

		types := make([]constants.IncidentType, 0, len(e.IncidentTypes))
		for _, t := range e.IncidentTypes {
			types = append(types, constants.IncidentType(t))
		}

		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		policies = append(policies, &models.Policy{
			ID:       e.ID,
			Name:     e.Name,
			Enabled:  enabled,
			Priority: e.Priority,
			Match: models.PolicyMatch{
				IncidentTypes: types,
				MinConfidence: e.MinConfidence,
			},
			Action: models.PolicyAction{
				Playbook:        e.Playbook,
				RequireApproval: e.RequireApproval,
			},
		})
	}
	return policies, nil
}
