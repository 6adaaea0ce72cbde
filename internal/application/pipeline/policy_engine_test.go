package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

func policy(id string, priority int, types []constants.IncidentType, minConfidence float64) *models.Policy {
	return &models.Policy{
		ID:       id,
		TenantID: "demo",
		Name:     id,
		Enabled:  true,
		Priority: priority,
		Match: models.PolicyMatch{
			IncidentTypes: types,
			MinConfidence: minConfidence,
		},
		Action: models.PolicyAction{Playbook: "pb-" + id},
	}
}

func TestMatchPolicyPriorityOrder(t *testing.T) {
	policies := []*models.Policy{
		policy("low-prio", 20, nil, 0),
		policy("high-prio", 1, nil, 0),
	}
	match := MatchPolicy(policies, constants.IncidentTypeDataIntegrityFailure, 80)
	require.NotNil(t, match)
	assert.Equal(t, "high-prio", match.ID)
}

func TestMatchPolicySpecificTypeBeatsWildcard(t *testing.T) {
	policies := []*models.Policy{
		policy("wildcard", 5, nil, 0),
		policy("specific", 5, []constants.IncidentType{constants.IncidentTypeDataIntegrityFailure}, 0),
	}
	match := MatchPolicy(policies, constants.IncidentTypeDataIntegrityFailure, 80)
	require.NotNil(t, match)
	assert.Equal(t, "specific", match.ID)
}

func TestMatchPolicyEmptyTypeListIsWildcard(t *testing.T) {
	policies := []*models.Policy{policy("wildcard", 5, nil, 0)}
	for _, itype := range []constants.IncidentType{
		constants.IncidentTypeRowCountDrop,
		constants.IncidentTypeFreshnessViolation,
		constants.IncidentTypeUnknown,
	} {
		match := MatchPolicy(policies, itype, 50)
		require.NotNil(t, match, "wildcard must match %s", itype)
	}
}

func TestMatchPolicyMinConfidenceGate(t *testing.T) {
	policies := []*models.Policy{policy("gated", 1, nil, 75)}
	assert.Nil(t, MatchPolicy(policies, constants.IncidentTypeRowCountDrop, 74.9))
	assert.NotNil(t, MatchPolicy(policies, constants.IncidentTypeRowCountDrop, 75))
}

func TestMatchPolicySkipsDisabled(t *testing.T) {
	disabled := policy("disabled", 1, nil, 0)
	disabled.Enabled = false
	assert.Nil(t, MatchPolicy([]*models.Policy{disabled}, constants.IncidentTypeRowCountDrop, 90))
}

func TestMatchPolicyWrongTypeNoMatch(t *testing.T) {
	policies := []*models.Policy{
		policy("schema-only", 1, []constants.IncidentType{constants.IncidentTypeSchemaChange}, 0),
	}
	assert.Nil(t, MatchPolicy(policies, constants.IncidentTypeRowCountDrop, 90))
}

func TestMatchPolicyDeterministicTieBreak(t *testing.T) {
	// Same priority, same specificity: lexical ID order decides, every time.
	policies := []*models.Policy{
		policy("policy-b", 5, nil, 0),
		policy("policy-a", 5, nil, 0),
	}
	for i := 0; i < 10; i++ {
		match := MatchPolicy(policies, constants.IncidentTypeUnknown, 80)
		require.NotNil(t, match)
		assert.Equal(t, "policy-a", match.ID)
	}
}

func TestPolicyEngineEvaluateNoMatchReturnsNil(t *testing.T) {
	repo := &fakePolicyRepo{}
	engine := NewPolicyEngine(repo, logger.NewNoopLogger())

	match, err := engine.Evaluate(context.Background(), "demo", constants.IncidentTypeRowCountDrop, 90)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestPolicyEngineEvaluateIsTenantScoped(t *testing.T) {
	other := policy("other-tenant", 1, nil, 0)
	other.TenantID = "acme"
	repo := &fakePolicyRepo{policies: []*models.Policy{other}}
	engine := NewPolicyEngine(repo, logger.NewNoopLogger())

	match, err := engine.Evaluate(context.Background(), "demo", constants.IncidentTypeRowCountDrop, 90)
	require.NoError(t, err)
	assert.Nil(t, match)
}
