package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// OracleComparator implements service.SemanticComparator through the oracle
// gateway with a deterministic lexical fallback. Both paths normalize
// identifier spelling, so camelCase and snake_case renderings of the same
// field support each other rather than failing a literal substring check.
type OracleComparator struct {
	gateway service.OracleGateway
	logger  logger.Logger
}

// NewOracleComparator creates the semantic comparator.
func NewOracleComparator(gateway service.OracleGateway, log logger.Logger) *OracleComparator {
	return &OracleComparator{
		gateway: gateway,
		logger:  log.WithComponent("comparator"),
	}
}

var _ service.SemanticComparator = (*OracleComparator)(nil)

// Compare scores how strongly the evidence chain supports the hypothesis.
func (c *OracleComparator) Compare(ctx context.Context, session *service.OracleSession, hypothesis models.Hypothesis, chain models.EvidenceChain) (*models.VerificationResult, models.OracleMeta, error) {
	resp, err := c.gateway.Generate(ctx, session, service.OracleRequest{
		Stage:  constants.StageVerify,
		Prompt: c.prompt(hypothesis, chain),
		Fallback: func() (map[string]interface{}, error) {
			return c.lexicalCompare(hypothesis, chain), nil
		},
	})
	if err != nil {
		return nil, models.OracleMeta{}, err
	}

	result := &models.VerificationResult{}
	result.IsVerified, _ = resp.Result["is_verified"].(bool)
	if conf, ok := resp.Result["verification_confidence"].(float64); ok {
		result.VerificationConfidence = models.ClampConfidence(conf)
	}
	result.EvidenceSummary, _ = resp.Result["evidence_summary"].(string)
	result.Summary, _ = resp.Result["summary"].(string)
	if result.Summary == "" {
		result.Summary = fmt.Sprintf("compared %d evidence entries against hypothesis %s",
			len(chain), hypothesis.ID)
	}
	return result, resp.Meta, nil
}

func (c *OracleComparator) prompt(hypothesis models.Hypothesis, chain models.EvidenceChain) string {
	var b strings.Builder
	b.WriteString("Judge whether the evidence supports the hypothesis. Treat identifier renamings (camelCase vs snake_case) as the same field.\n")
	b.WriteString(`Answer as JSON: {"is_verified": bool, "verification_confidence": number, "evidence_summary": string, "summary": string}` + "\n\n")
	fmt.Fprintf(&b, "Hypothesis %s: %s\n\nEvidence:\n", hypothesis.ID, hypothesis.Description)
	for _, e := range chain {
		if e.Succeeded() {
			fmt.Fprintf(&b, "--- step %s (%s on %s)\n%s\n", e.StepID, e.Tool, e.Target, e.Evidence)
		} else {
			fmt.Fprintf(&b, "--- step %s (%s on %s) FAILED: %s\n", e.StepID, e.Tool, e.Target, e.Error)
		}
	}
	return b.String()
}

// lexicalCompare is the deterministic fallback: it counts hypothesis terms
// that appear, after identifier normalization, in the usable evidence.
func (c *OracleComparator) lexicalCompare(hypothesis models.Hypothesis, chain models.EvidenceChain) map[string]interface{} {
	var evidence strings.Builder
	for _, e := range chain {
		if e.Succeeded() {
			evidence.WriteString(e.Evidence)
			evidence.WriteByte('\n')
		}
	}
	normalizedEvidence := normalizeIdentifiers(evidence.String())

	terms := significantTerms(hypothesis.Description)
	matched := 0
	for _, term := range terms {
		if strings.Contains(normalizedEvidence, term) {
			matched++
		}
	}

	var ratio float64
	if len(terms) > 0 {
		ratio = float64(matched) / float64(len(terms))
	}

	// Corroboration across independent steps is worth more than term overlap
	// within a single one.
	usable := chain.UsableCount()
	confidence := ratio * 60
	if usable >= 2 {
		confidence += 25
	} else if usable == 1 {
		confidence += 10
	}
	confidence = models.ClampConfidence(confidence)

	return map[string]interface{}{
		"is_verified":             ratio >= 0.5 && usable >= 1,
		"verification_confidence": confidence,
		"evidence_summary": fmt.Sprintf("%d of %d hypothesis terms matched across %d usable evidence entries",
			matched, len(terms), usable),
		"summary": "deterministic lexical comparison",
	}
}

// normalizeIdentifiers lowercases text and strips identifier separators so
// sourceId, source_id and source-id all normalize to "sourceid".
func normalizeIdentifiers(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '_' || r == '-':
			// separator dropped
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// significantTerms extracts the normalized content words of a description.
func significantTerms(description string) []string {
	stop := map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "in": true, "on": true,
		"of": true, "to": true, "and": true, "or": true, "has": true, "have": true,
		"values": true, "producing": true, "change": true, "upstream": true,
	}
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	})

	var terms []string
	seen := make(map[string]bool)
	for _, f := range fields {
		norm := normalizeIdentifiers(f)
		if len(norm) < 4 || stop[f] || seen[norm] {
			continue
		}
		seen[norm] = true
		terms = append(terms, norm)
	}
	return terms
}
