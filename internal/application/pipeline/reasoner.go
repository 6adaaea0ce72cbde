package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

var hypothesisIDPattern = regexp.MustCompile(`^H\d+$`)

// TriageResult is the reasoner's quick first pass over the signals.
type TriageResult struct {
	Proceed  bool
	Priority string // "high", "medium", "low"
	Summary  string
	Meta     models.OracleMeta
}

// ReasoningResult carries the ranked hypotheses for investigation.
type ReasoningResult struct {
	Hypotheses []models.Hypothesis
	Meta       models.OracleMeta
}

// Reasoner turns anomaly signals into ranked root-cause hypotheses. It runs
// triage first; cycles whose signals do not warrant deep reasoning stop there
// with the triage decision still logged. Chronic-offender insights from the
// meta-learner raise triage priority for recurring sources.
type Reasoner struct {
	gateway     service.OracleGateway
	insightRepo repository.InsightRepository
	logger      logger.Logger
}

// NewReasoner creates the causal reasoner stage.
func NewReasoner(gateway service.OracleGateway, insightRepo repository.InsightRepository, log logger.Logger) *Reasoner {
	return &Reasoner{
		gateway:     gateway,
		insightRepo: insightRepo,
		logger:      log.WithComponent("reasoner"),
	}
}

// Triage decides whether the cycle's signals warrant full causal reasoning.
func (r *Reasoner) Triage(ctx context.Context, session *service.OracleSession, tenant *models.Tenant, obs *Observation) (*TriageResult, error) {
	if len(obs.Signals) == 0 {
		return &TriageResult{
			Proceed: false,
			Summary: "no anomaly signals; nothing to triage",
		}, nil
	}

	chronic := r.chronicSources(ctx, tenant.TenantID)

	prompt := r.triagePrompt(tenant, obs, chronic)
	resp, err := r.gateway.Generate(ctx, session, service.OracleRequest{
		Stage:  constants.StageTriage,
		Prompt: prompt,
		Fallback: func() (map[string]interface{}, error) {
			return r.triageFallback(obs, chronic), nil
		},
	})
	if err != nil {
		return nil, err
	}

	result := &TriageResult{Meta: resp.Meta}
	result.Proceed, _ = resp.Result["proceed"].(bool)
	result.Priority, _ = resp.Result["priority"].(string)
	result.Summary, _ = resp.Result["summary"].(string)
	if result.Summary == "" {
		result.Summary = fmt.Sprintf("triage over %d signals", len(obs.Signals))
	}

	r.logger.Info(ctx, "Triage decision",
		logger.String("tenant_id", tenant.TenantID),
		logger.Bool("proceed", result.Proceed),
		logger.String("priority", result.Priority),
		logger.Bool("api_used", resp.Meta.APIUsed),
	)
	return result, nil
}

// Reason produces up to the hypothesis budget of ranked root-cause claims,
// each with an ordered investigation plan.
func (r *Reasoner) Reason(ctx context.Context, session *service.OracleSession, tenant *models.Tenant, obs *Observation) (*ReasoningResult, error) {
	prompt := r.reasonPrompt(tenant, obs)
	resp, err := r.gateway.Generate(ctx, session, service.OracleRequest{
		Stage:  constants.StageReason,
		Prompt: prompt,
		Fallback: func() (map[string]interface{}, error) {
			return r.reasonFallback(obs), nil
		},
	})
	if err != nil {
		return nil, err
	}

	hypotheses := parseHypotheses(resp.Result)
	if len(hypotheses) == 0 {
		// A malformed oracle answer degrades to the deterministic plan.
		hypotheses = parseHypotheses(r.reasonFallback(obs))
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].ConfidenceScore > hypotheses[j].ConfidenceScore
	})
	if len(hypotheses) > constants.MaxHypothesesPerCycle {
		hypotheses = hypotheses[:constants.MaxHypothesesPerCycle]
	}
	for i := range hypotheses {
		if !hypothesisIDPattern.MatchString(hypotheses[i].ID) {
			hypotheses[i].ID = fmt.Sprintf("H%d", i+1)
		}
		hypotheses[i].ConfidenceScore = models.ClampConfidence(hypotheses[i].ConfidenceScore)
	}

	r.logger.Info(ctx, "Hypotheses generated",
		logger.String("tenant_id", tenant.TenantID),
		logger.Int("count", len(hypotheses)),
		logger.Bool("api_used", resp.Meta.APIUsed),
	)
	return &ReasoningResult{Hypotheses: hypotheses, Meta: resp.Meta}, nil
}

// chronicSources returns the sources the meta-learner flagged as recurring.
func (r *Reasoner) chronicSources(ctx context.Context, tenantID string) map[string]int {
	chronic := make(map[string]int)
	if r.insightRepo == nil {
		return chronic
	}
	insights, err := r.insightRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		r.logger.Warn(ctx, "Insight lookup failed; triage continues without history",
			logger.String("tenant_id", tenantID),
			logger.String("error", err.Error()),
		)
		return chronic
	}
	for _, ins := range insights {
		if ins.Frequency >= constants.ChronicOffenderMinFrequency {
			chronic[ins.Source] = ins.Frequency
		}
	}
	return chronic
}

func (r *Reasoner) triagePrompt(tenant *models.Tenant, obs *Observation, chronic map[string]int) string {
	var b strings.Builder
	b.WriteString("Decide whether these data-quality signals warrant a root-cause investigation.\n")
	b.WriteString(`Answer as JSON: {"proceed": bool, "priority": "high"|"medium"|"low", "summary": string}` + "\n\nSignals:\n")
	for _, s := range obs.Signals {
		fmt.Fprintf(&b, "- %s %s observed=%.3f baseline=%.3f severity=%s\n",
			s.Source, s.Metric, s.Observed, s.Baseline, s.Severity)
	}
	if len(chronic) > 0 {
		b.WriteString("\nKnown recurring sources (raise priority when matched):\n")
		for source, freq := range chronic {
			fmt.Fprintf(&b, "- %s recurred %d times\n", source, freq)
		}
	}
	return b.String()
}

// triageFallback proceeds on any high-severity signal, two or more signals of
// any grade, or a signal from a chronic-offender source.
func (r *Reasoner) triageFallback(obs *Observation, chronic map[string]int) map[string]interface{} {
	proceed := len(obs.Signals) >= 2
	priority := "low"
	reason := "signal volume below triage bar"

	for _, s := range obs.Signals {
		if s.Severity == constants.SeverityHigh {
			proceed = true
			priority = "high"
			reason = "high-severity signal on " + s.Source
			break
		}
		table := s.Source
		if idx := strings.IndexByte(table, '.'); idx > 0 {
			table = table[:idx]
		}
		if chronic[table] > 0 || chronic[s.Source] > 0 {
			proceed = true
			if priority != "high" {
				priority = "medium"
			}
			reason = "recurring offender " + s.Source
		}
	}
	if proceed && priority == "low" {
		priority = "medium"
		reason = fmt.Sprintf("%d concurrent signals", len(obs.Signals))
	}

	return map[string]interface{}{
		"proceed":  proceed,
		"priority": priority,
		"summary":  reason,
	}
}

func (r *Reasoner) reasonPrompt(tenant *models.Tenant, obs *Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate up to %d root-cause hypotheses for these data-quality signals.\n", constants.MaxHypothesesPerCycle)
	b.WriteString(`Answer as JSON: {"hypotheses": [{"id": "H1", "description": string, "supporting_evidence": [string], "confidence_score": number, "investigation_plan": [{"step_id": string, "action": string, "target": string}]}]}` + "\n")
	b.WriteString("Available investigation actions: check_baseline_metrics, query_git_diff, check_etl_mapping.\n\nSignals:\n")
	for _, s := range obs.Signals {
		fmt.Fprintf(&b, "- %s %s observed=%.3f baseline=%.3f severity=%s detail=%s\n",
			s.Source, s.Metric, s.Observed, s.Baseline, s.Severity, s.Detail)
	}
	if len(obs.Package.RecentEvents) > 0 {
		b.WriteString("\nRecent changes:\n")
		for _, ev := range obs.Package.RecentEvents {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.Kind, ev.Source, ev.Detail)
		}
	}
	return b.String()
}

// reasonFallback derives deterministic hypotheses from the strongest signals.
func (r *Reasoner) reasonFallback(obs *Observation) map[string]interface{} {
	ordered := make([]models.AnomalySignal, len(obs.Signals))
	copy(ordered, obs.Signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) > severityRank(ordered[j].Severity)
	})

	var hyps []map[string]interface{}
	for i, s := range ordered {
		if i >= constants.MaxHypothesesPerCycle {
			break
		}
		table := s.Source
		if idx := strings.IndexByte(table, '.'); idx > 0 {
			table = table[:idx]
		}
		id := fmt.Sprintf("H%d", i+1)

		var description string
		var confidence float64
		plan := []map[string]interface{}{
			{"step_id": id + "-S1", "action": "check_baseline_metrics", "target": s.Source},
		}
		switch s.Metric {
		case "null_rate":
			description = fmt.Sprintf("an upstream ETL field-mapping change is producing NULL values in %s", s.Source)
			confidence = 65
			plan = append(plan,
				map[string]interface{}{"step_id": id + "-S2", "action": "query_git_diff", "target": table},
				map[string]interface{}{"step_id": id + "-S3", "action": "check_etl_mapping", "target": table},
			)
		case "freshness":
			description = fmt.Sprintf("the ingestion job feeding %s has stalled", table)
			confidence = 60
			plan = append(plan,
				map[string]interface{}{"step_id": id + "-S2", "action": "check_etl_mapping", "target": table},
			)
		case "row_count":
			description = fmt.Sprintf("an upstream delay or partial load reduced %s volume", table)
			confidence = 55
			plan = append(plan,
				map[string]interface{}{"step_id": id + "-S2", "action": "query_git_diff", "target": table},
			)
		default:
			description = fmt.Sprintf("unclassified anomaly on %s (%s)", s.Source, s.Metric)
			confidence = 40
		}

		hyps = append(hyps, map[string]interface{}{
			"id":                  id,
			"description":         description,
			"supporting_evidence": []interface{}{s.Detail},
			"confidence_score":    confidence,
			"investigation_plan":  plan,
		})
	}

	return map[string]interface{}{"hypotheses": hyps}
}

func severityRank(s constants.Severity) int {
	switch s {
	case constants.SeverityHigh:
		return 3
	case constants.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// parseHypotheses decodes the oracle's loosely typed answer into domain
// hypotheses, dropping entries that do not survive a round trip.
func parseHypotheses(result map[string]interface{}) []models.Hypothesis {
	raw, ok := result["hypotheses"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var hypotheses []models.Hypothesis
	if err := json.Unmarshal(encoded, &hypotheses); err != nil {
		return nil
	}

	valid := hypotheses[:0]
	for _, h := range hypotheses {
		if h.Description == "" || len(h.InvestigationPlan) == 0 {
			continue
		}
		valid = append(valid, h)
	}
	return valid
}
