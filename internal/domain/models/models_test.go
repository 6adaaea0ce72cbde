package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/pkg/constants"
)

func TestTenantCloneIsolatesConfig(t *testing.T) {
	original := NewTenant("demo", "Demo")
	original.Config.Tables = map[string]TableConfig{
		"orders": {ExpectedFreshnessMinutes: 30},
	}

	clone := original.Clone()
	clone.Config.Channels[0] = "slack"
	clone.Config.MonitoredTables[0] = "payments"
	clone.Config.Tables["orders"] = TableConfig{ExpectedFreshnessMinutes: 5}
	clone.Config.ConfidenceThreshold = 99

	assert.Equal(t, "console", original.Config.Channels[0])
	assert.Equal(t, "orders", original.Config.MonitoredTables[0])
	assert.Equal(t, 30, original.Config.Tables["orders"].ExpectedFreshnessMinutes)
	assert.Equal(t, constants.DefaultConfidenceThreshold, original.Config.ConfidenceThreshold)
}

func TestTenantTableThresholdsFallBackToDefaults(t *testing.T) {
	tenant := NewTenant("demo", "Demo")
	tenant.Config.Tables = map[string]TableConfig{
		"orders": {NullRateDeltaThreshold: 0.25},
	}

	orders := tenant.TableThresholds("orders")
	assert.Equal(t, 0.25, orders.NullRateDeltaThreshold)
	assert.Equal(t, constants.DefaultFreshnessMinutes, orders.ExpectedFreshnessMinutes)
	assert.Equal(t, 0.50, orders.RowCountDropRatio)

	// A table nobody configured still gets watched with the defaults.
	unknown := tenant.TableThresholds("payments")
	assert.Equal(t, constants.DefaultFreshnessMinutes, unknown.ExpectedFreshnessMinutes)
	assert.Equal(t, 0.10, unknown.NullRateDeltaThreshold)
}

func TestTenantLifecycleTransitions(t *testing.T) {
	tenant := NewTenant("demo", "Demo")
	assert.True(t, tenant.IsActive())

	tenant.Suspend()
	assert.True(t, tenant.IsSuspended())
	assert.False(t, tenant.IsActive())

	tenant.Activate()
	assert.True(t, tenant.IsActive())

	tenant.SoftDelete()
	assert.False(t, tenant.IsActive())
	require.NotNil(t, tenant.DeletedAt)
}

func TestApprovalTokenLifecycle(t *testing.T) {
	token := NewApprovalToken("tok-1", "demo", "inc-1", "quarantine_table", nil, time.Hour)
	now := time.Now().UTC()

	assert.True(t, token.IsPending(now))
	assert.False(t, token.IsExpired(now))

	token.Consume(constants.ApprovalStatusApproved, "alice", "looks right", now)
	assert.False(t, token.IsPending(now))
	assert.Equal(t, "alice", token.DecidedBy)
	require.NotNil(t, token.DecidedAt)
}

func TestApprovalTokenExpiryBlocksPending(t *testing.T) {
	token := NewApprovalToken("tok-1", "demo", "inc-1", "quarantine_table", nil, time.Hour)

	later := time.Now().UTC().Add(2 * time.Hour)
	assert.True(t, token.IsExpired(later))
	assert.False(t, token.IsPending(later), "expiry wins even while the status is still pending")
}

func TestIncidentArchiveIsIdempotent(t *testing.T) {
	in := &Incident{
		ID:        "inc-1",
		TenantID:  "demo",
		Status:    constants.IncidentStatusVerified,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}

	first := time.Now().UTC()
	in.Archive(first)
	require.NotNil(t, in.ResolvedAt)
	assert.Equal(t, constants.IncidentStatusResolved, in.Status)

	stamp := *in.ResolvedAt
	in.Archive(first.Add(time.Hour))
	assert.Equal(t, stamp, *in.ResolvedAt, "re-archiving never moves the resolution time")
}

func TestIncidentTimeToResolveRequiresArchive(t *testing.T) {
	in := &Incident{CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}

	_, ok := in.TimeToResolve()
	assert.False(t, ok, "open incidents never contribute to MTTR")

	in.Archive(time.Now())
	d, ok := in.TimeToResolve()
	require.True(t, ok)
	assert.InDelta(t, float64(2*time.Hour), float64(d), float64(time.Minute))
}

func TestEvidenceChainCounts(t *testing.T) {
	chain := EvidenceChain{
		{StepID: "H1-S1", Evidence: "found it"},
		{StepID: "H1-S2", Error: "timeout"},
		{StepID: "H1-S3"}, // no evidence, no error: not usable
	}
	assert.Equal(t, 1, chain.UsableCount())
	assert.Equal(t, 1, chain.FailedCount())
}

func TestPolicyMatchesWildcardAndConfidenceFloor(t *testing.T) {
	wildcard := &Policy{Enabled: true, Match: PolicyMatch{MinConfidence: 75}}
	assert.True(t, wildcard.Matches(constants.IncidentTypeRowCountDrop, 75))
	assert.False(t, wildcard.Matches(constants.IncidentTypeRowCountDrop, 74.9))

	scoped := &Policy{Enabled: true, Match: PolicyMatch{
		IncidentTypes: []constants.IncidentType{constants.IncidentTypeDataIntegrityFailure},
	}}
	assert.True(t, scoped.Matches(constants.IncidentTypeDataIntegrityFailure, 10))
	assert.False(t, scoped.Matches(constants.IncidentTypeRowCountDrop, 99))

	disabled := &Policy{Match: PolicyMatch{MinConfidence: 75}}
	assert.False(t, disabled.Matches(constants.IncidentTypeRowCountDrop, 99), "a disabled policy never matches")
}

func TestPolicySpecificityPrefersNarrowerMatch(t *testing.T) {
	wildcard := &Policy{}
	narrow := &Policy{Match: PolicyMatch{
		IncidentTypes: []constants.IncidentType{constants.IncidentTypeDataIntegrityFailure},
	}}
	broad := &Policy{Match: PolicyMatch{
		IncidentTypes: []constants.IncidentType{
			constants.IncidentTypeDataIntegrityFailure,
			constants.IncidentTypeRowCountDrop,
		},
	}}

	assert.Greater(t, narrow.Specificity(), broad.Specificity())
	assert.Greater(t, broad.Specificity(), wildcard.Specificity())
}

func TestClampConfidenceBounds(t *testing.T) {
	assert.Equal(t, float64(0), ClampConfidence(-5))
	assert.Equal(t, float64(100), ClampConfidence(150))
	assert.Equal(t, 42.5, ClampConfidence(42.5))
}
