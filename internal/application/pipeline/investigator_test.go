package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/infrastructure/tools"
	"github.com/turtacn/sentra/pkg/logger"
)

func planOf(actions ...string) models.Hypothesis {
	h := models.Hypothesis{ID: "H1", Description: "test hypothesis"}
	for i, action := range actions {
		h.InvestigationPlan = append(h.InvestigationPlan, models.InvestigationStep{
			StepID: "H1-S" + string(rune('1'+i)),
			Action: action,
			Target: "orders",
		})
	}
	return h
}

func TestInvestigateFailedStepKeepsPriorEvidence(t *testing.T) {
	good := &staticTool{name: "good", evidence: "useful evidence"}
	bad := &staticTool{name: "bad", err: assert.AnError}
	registry := tools.NewRegistry(good, bad)
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	chain := inv.Investigate(context.Background(), models.NewTenant("demo", "Demo"), &Observation{}, planOf("good", "bad", "good"))
	require.Len(t, chain, 3)

	assert.True(t, chain[0].Succeeded())
	assert.False(t, chain[1].Succeeded())
	assert.NotEmpty(t, chain[1].Error)
	// The failure in the middle never invalidates surrounding results.
	assert.True(t, chain[2].Succeeded())
	assert.Equal(t, 2, chain.UsableCount())
	assert.Equal(t, 1, chain.FailedCount())
}

func TestInvestigatePanickingToolIsIsolated(t *testing.T) {
	boom := &staticTool{name: "boom", panics: true}
	good := &staticTool{name: "good", evidence: "still here"}
	registry := tools.NewRegistry(boom, good)
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	chain := inv.Investigate(context.Background(), models.NewTenant("demo", "Demo"), &Observation{}, planOf("boom", "good"))
	require.Len(t, chain, 2)
	assert.Contains(t, chain[0].Error, "panicked")
	assert.True(t, chain[1].Succeeded())
}

func TestInvestigateUnknownToolRecordsError(t *testing.T) {
	registry := tools.NewRegistry()
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	chain := inv.Investigate(context.Background(), models.NewTenant("demo", "Demo"), &Observation{}, planOf("missing"))
	require.Len(t, chain, 1)
	assert.Contains(t, chain[0].Error, "unknown tool")
	assert.Equal(t, 0, chain.UsableCount())
}

func TestInvestigateEmptyEvidenceCountsAsFailure(t *testing.T) {
	empty := &staticTool{name: "empty", evidence: ""}
	registry := tools.NewRegistry(empty)
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	chain := inv.Investigate(context.Background(), models.NewTenant("demo", "Demo"), &Observation{}, planOf("empty"))
	require.Len(t, chain, 1)
	assert.False(t, chain[0].Succeeded())
	assert.Equal(t, "tool returned no evidence", chain[0].Error)
}

func TestInvestigateStopsOnCancellation(t *testing.T) {
	slow := &staticTool{name: "slow", evidence: "evidence"}
	registry := tools.NewRegistry(slow)
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := inv.Investigate(ctx, models.NewTenant("demo", "Demo"), &Observation{}, planOf("slow", "slow", "slow"))
	require.Len(t, chain, 1, "cancellation is honored between steps")
	assert.Contains(t, chain[0].Error, "cancelled")
	assert.Equal(t, 0, slow.calls)
}

func TestInvestigateChainPreservesPlanOrder(t *testing.T) {
	a := &staticTool{name: "a", evidence: "ev-a"}
	b := &staticTool{name: "b", evidence: "ev-b"}
	registry := tools.NewRegistry(a, b)
	inv := NewInvestigator(registry, logger.NewNoopLogger())

	chain := inv.Investigate(context.Background(), models.NewTenant("demo", "Demo"), &Observation{}, planOf("b", "a"))
	require.Len(t, chain, 2)
	assert.Equal(t, "b", chain[0].Tool)
	assert.Equal(t, "a", chain[1].Tool)
}
