package pipeline

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// Verifier grades an investigated hypothesis. The VERIFIED verdict requires
// both the comparator's agreement and a confidence at or above the tenant's
// threshold; either alone is not enough.
type Verifier struct {
	comparator service.SemanticComparator
	logger     logger.Logger
}

// NewVerifier creates the verifier stage.
func NewVerifier(comparator service.SemanticComparator, log logger.Logger) *Verifier {
	return &Verifier{
		comparator: comparator,
		logger:     log.WithComponent("verifier"),
	}
}

// Verify scores the hypothesis against its evidence chain. A chain with zero
// usable evidence short-circuits to UNVERIFIED without consulting the
// comparator.
func (v *Verifier) Verify(ctx context.Context, session *service.OracleSession, tenant *models.Tenant, hypothesis models.Hypothesis, chain models.EvidenceChain) (*models.VerificationResult, models.OracleMeta, error) {
	if chain.UsableCount() == 0 {
		result := &models.VerificationResult{
			IsVerified:             false,
			VerificationConfidence: 0,
			Status:                 constants.VerificationUnverified,
			Summary:                "no usable evidence was collected",
		}
		return result, models.OracleMeta{
			Provider:  constants.OracleFallbackProvider,
			Model:     "local",
			APIUsed:   false,
			Timestamp: time.Now().UTC(),
		}, nil
	}

	result, meta, err := v.comparator.Compare(ctx, session, hypothesis, chain)
	if err != nil {
		return nil, meta, err
	}

	threshold := tenant.ConfidenceThreshold()
	switch {
	case result.IsVerified && result.VerificationConfidence >= threshold:
		result.Status = constants.VerificationConfirmed
	case result.IsVerified:
		result.Status = constants.VerificationWeakEvidence
	case result.VerificationConfidence > 0:
		result.Status = constants.VerificationUnverified
	default:
		result.Status = constants.VerificationRejected
	}

	v.logger.Info(ctx, "Hypothesis verified",
		logger.String("tenant_id", tenant.TenantID),
		logger.String("hypothesis_id", hypothesis.ID),
		logger.String("status", string(result.Status)),
		logger.Float64("confidence", result.VerificationConfidence),
		logger.Float64("threshold", threshold),
	)
	return result, meta, nil
}
