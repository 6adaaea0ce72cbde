package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// cannedComparator returns a fixed verdict regardless of input.
type cannedComparator struct {
	result models.VerificationResult
	called bool
}

func (c *cannedComparator) Compare(context.Context, *service.OracleSession, models.Hypothesis, models.EvidenceChain) (*models.VerificationResult, models.OracleMeta, error) {
	c.called = true
	result := c.result
	return &result, models.OracleMeta{Provider: "canned", Timestamp: time.Now().UTC()}, nil
}

func usableChain() models.EvidenceChain {
	return models.EvidenceChain{
		{StepID: "H1-S1", Tool: "check_baseline_metrics", Target: "orders",
			Evidence: "observed above baseline", At: time.Now().UTC()},
	}
}

func TestVerifyEmptyChainShortCircuits(t *testing.T) {
	comparator := &cannedComparator{}
	verifier := NewVerifier(comparator, logger.NewNoopLogger())

	chain := models.EvidenceChain{
		{StepID: "H1-S1", Tool: "query_git_diff", Target: "orders", Error: "timeout", At: time.Now().UTC()},
	}
	result, meta, err := verifier.Verify(context.Background(), &service.OracleSession{}, models.NewTenant("demo", "Demo"), models.Hypothesis{ID: "H1"}, chain)
	require.NoError(t, err)
	assert.False(t, comparator.called, "comparator must not be consulted without usable evidence")
	assert.Equal(t, constants.VerificationUnverified, result.Status)
	assert.False(t, meta.APIUsed)
}

func TestVerifyConfirmedRequiresBothVerdictAndThreshold(t *testing.T) {
	tenant := models.NewTenant("demo", "Demo")
	tenant.Config.ConfidenceThreshold = 70

	cases := []struct {
		name       string
		isVerified bool
		confidence float64
		want       constants.VerificationStatus
	}{
		{"verified above threshold", true, 85, constants.VerificationConfirmed},
		{"verified at threshold", true, 70, constants.VerificationConfirmed},
		{"verified below threshold", true, 69, constants.VerificationWeakEvidence},
		{"unverified with some signal", false, 40, constants.VerificationUnverified},
		{"unverified zero confidence", false, 0, constants.VerificationRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comparator := &cannedComparator{result: models.VerificationResult{
				IsVerified:             tc.isVerified,
				VerificationConfidence: tc.confidence,
			}}
			verifier := NewVerifier(comparator, logger.NewNoopLogger())

			result, _, err := verifier.Verify(context.Background(), &service.OracleSession{}, tenant, models.Hypothesis{ID: "H1"}, usableChain())
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Status)
		})
	}
}

func TestVerifyHonorsTenantSpecificThreshold(t *testing.T) {
	strict := models.NewTenant("strict", "Strict")
	strict.Config.ConfidenceThreshold = 95
	lenient := models.NewTenant("lenient", "Lenient")
	lenient.Config.ConfidenceThreshold = 50

	comparator := &cannedComparator{result: models.VerificationResult{
		IsVerified:             true,
		VerificationConfidence: 80,
	}}
	verifier := NewVerifier(comparator, logger.NewNoopLogger())

	strictResult, _, err := verifier.Verify(context.Background(), &service.OracleSession{}, strict, models.Hypothesis{ID: "H1"}, usableChain())
	require.NoError(t, err)
	assert.Equal(t, constants.VerificationWeakEvidence, strictResult.Status)

	lenientResult, _, err := verifier.Verify(context.Background(), &service.OracleSession{}, lenient, models.Hypothesis{ID: "H1"}, usableChain())
	require.NoError(t, err)
	assert.Equal(t, constants.VerificationConfirmed, lenientResult.Status)
}
