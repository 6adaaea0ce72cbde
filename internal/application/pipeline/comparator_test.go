package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

func TestNormalizeIdentifiers(t *testing.T) {
	cases := map[string]string{
		"sourceId":   "sourceid",
		"source_id":  "sourceid",
		"source-id":  "sourceid",
		"SOURCE_ID":  "sourceid",
		"user_id":    "userid",
		"plain text": "plain text",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeIdentifiers(in), "input %q", in)
	}
}

func TestCompareTreatsRenamedIdentifiersAsEquivalent(t *testing.T) {
	comparator := NewOracleComparator(&fallbackGateway{}, logger.NewNoopLogger())
	session := &service.OracleSession{TenantID: "demo"}

	hypothesis := models.Hypothesis{
		ID:          "H1",
		Description: "the ETL mapping dropped the sourceId field causing NULL user_id values in orders",
	}
	// Evidence spells the same fields in snake_case; a literal substring
	// check would miss the match.
	chain := models.EvidenceChain{
		{StepID: "H1-S1", Tool: "check_etl_mapping", Target: "orders",
			Evidence: "mapping diff: column source_id removed; user_id now unmapped in orders load",
			At:       time.Now().UTC()},
		{StepID: "H1-S2", Tool: "check_baseline_metrics", Target: "orders",
			Evidence: "null_rate orders.user_id observed=0.500 baseline=0.050 <-- above baseline",
			At:       time.Now().UTC()},
	}

	result, meta, err := comparator.Compare(context.Background(), session, hypothesis, chain)
	require.NoError(t, err)
	assert.True(t, result.IsVerified)
	assert.Greater(t, result.VerificationConfidence, 50.0)
	assert.False(t, meta.APIUsed)
}

func TestCompareUnrelatedEvidenceScoresLow(t *testing.T) {
	comparator := NewOracleComparator(&fallbackGateway{}, logger.NewNoopLogger())
	session := &service.OracleSession{TenantID: "demo"}

	hypothesis := models.Hypothesis{
		ID:          "H1",
		Description: "the ingestion job feeding inventory has stalled",
	}
	chain := models.EvidenceChain{
		{StepID: "H1-S1", Tool: "query_git_diff", Target: "billing",
			Evidence: "no commits touching billing configuration in the window",
			At:       time.Now().UTC()},
	}

	result, _, err := comparator.Compare(context.Background(), session, hypothesis, chain)
	require.NoError(t, err)
	assert.False(t, result.IsVerified)
}

func TestCompareIgnoresFailedSteps(t *testing.T) {
	comparator := NewOracleComparator(&fallbackGateway{}, logger.NewNoopLogger())
	session := &service.OracleSession{TenantID: "demo"}

	hypothesis := models.Hypothesis{
		ID:          "H1",
		Description: "field mapping regression producing NULL user_id values",
	}
	// The only step mentioning the terms failed; its text must not count.
	chain := models.EvidenceChain{
		{StepID: "H1-S1", Tool: "check_etl_mapping", Target: "orders",
			Error: "timeout fetching mapping for user_id field",
			At:    time.Now().UTC()},
	}

	result, _, err := comparator.Compare(context.Background(), session, hypothesis, chain)
	require.NoError(t, err)
	assert.False(t, result.IsVerified)
	assert.Equal(t, 0.0, result.VerificationConfidence)
}

func TestSignificantTermsDropsStopWordsAndDuplicates(t *testing.T) {
	terms := significantTerms("the user_id column in orders has user_id NULLs")
	assert.Contains(t, terms, "userid")
	assert.Contains(t, terms, "orders")
	assert.NotContains(t, terms, "the")
	// user_id appears twice but is counted once.
	count := 0
	for _, term := range terms {
		if term == "userid" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
