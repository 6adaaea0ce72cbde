package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/internal/infrastructure/monitoring"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// maxConcurrentCycles bounds pipeline parallelism across tenants. Cycles of
// different tenants run concurrently up to this limit; a single tenant never
// runs two at once.
const maxConcurrentCycles = 8

// CycleResult is the orchestrator's report for one detection cycle. A DONE
// cycle carries exactly zero or one incident.
type CycleResult struct {
	CycleID   string                   `json:"cycle_id"`
	TenantID  string                   `json:"tenant_id"`
	State     constants.CycleState     `json:"state"`
	Incident  *models.Incident         `json:"incident,omitempty"`
	Summary   string                   `json:"summary"`
	OracleUse service.OracleSession    `json:"oracle_use"`
	StartedAt time.Time                `json:"started_at"`
	EndedAt   time.Time                `json:"ended_at"`
}

// Orchestrator drives the per-tenant detection cycle through its state
// machine. Stages receive everything they need as parameters; no state leaks
// between cycles or tenants.
type Orchestrator struct {
	tenantRepo  repository.TenantRepository
	auditRepo   repository.AuditRepository
	observer    *Observer
	reasoner    *Reasoner
	investigator *Investigator
	verifier    *Verifier
	policies    *PolicyEngine
	remediation *RemediationEngine
	historian   *Historian
	escalator   *Escalator
	lease       service.CycleLease
	publisher   service.EventPublisher
	metrics     *monitoring.Metrics
	logger      logger.Logger

	// failureSim, when set, backs failure-drill cycles with synthetic
	// defect data instead of the production source.
	failureSim service.MetricsSource

	sem *semaphore.Weighted
}

// CycleOptions tunes a single cycle run.
type CycleOptions struct {
	// SimulateFailure scans synthetic defect data instead of the production
	// source, exercising the full pipeline end to end.
	SimulateFailure bool
}

// NewOrchestrator wires the cycle orchestrator.
func NewOrchestrator(
	tenantRepo repository.TenantRepository,
	auditRepo repository.AuditRepository,
	observer *Observer,
	reasoner *Reasoner,
	investigator *Investigator,
	verifier *Verifier,
	policies *PolicyEngine,
	remediation *RemediationEngine,
	historian *Historian,
	escalator *Escalator,
	lease service.CycleLease,
	publisher service.EventPublisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		tenantRepo:   tenantRepo,
		auditRepo:    auditRepo,
		observer:     observer,
		reasoner:     reasoner,
		investigator: investigator,
		verifier:     verifier,
		policies:     policies,
		remediation:  remediation,
		historian:    historian,
		escalator:    escalator,
		lease:        lease,
		publisher:    publisher,
		metrics:      metrics,
		logger:       log.WithComponent("orchestrator"),
		sem:          semaphore.NewWeighted(maxConcurrentCycles),
	}
}

// SetFailureSimulator installs the metrics source used by failure-drill
// cycles. Without one, drill requests fall back to the regular source.
func (o *Orchestrator) SetFailureSimulator(source service.MetricsSource) {
	o.failureSim = source
}

// RunCycle executes one detection cycle for the tenant. At most one cycle per
// tenant runs at a time; a second trigger fails fast with CycleAlreadyRunning.
func (o *Orchestrator) RunCycle(ctx context.Context, tenantID string) (*CycleResult, error) {
	return o.RunCycleOpts(ctx, tenantID, CycleOptions{})
}

// RunCycleOpts is RunCycle with per-run options.
func (o *Orchestrator) RunCycleOpts(ctx context.Context, tenantID string, opts CycleOptions) (*CycleResult, error) {
	tenant, err := o.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.IsSuspended() {
		return nil, errors.ErrTenantSuspended(tenantID)
	}
	if !tenant.IsActive() {
		return nil, errors.ErrTenantNotFound(tenantID)
	}
	// The cycle works on a clone; concurrent admin updates never mutate a
	// running cycle's view of the tenant.
	tenant = tenant.Clone()

	acquired, err := o.lease.TryAcquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, errors.ErrCycleAlreadyRunning(tenantID)
	}
	defer func() {
		if err := o.lease.Release(context.Background(), tenantID); err != nil {
			o.logger.Error(ctx, "Cycle lease release failed", err, logger.String("tenant_id", tenantID))
		}
	}()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)

	cycleID := uuid.NewString()
	ctx = context.WithValue(ctx, constants.ContextKeyTenantID, tenantID)
	ctx = context.WithValue(ctx, constants.ContextKeyCycleID, cycleID)

	observer := o.observer
	if opts.SimulateFailure {
		if o.failureSim != nil {
			observer = o.observer.WithSource(o.failureSim)
		} else {
			o.logger.Warn(ctx, "Failure drill requested without a simulator, using the regular source",
				logger.String("tenant_id", tenantID))
		}
	}

	return o.runStates(ctx, tenant, cycleID, observer)
}

func (o *Orchestrator) runStates(ctx context.Context, tenant *models.Tenant, cycleID string, observer *Observer) (*CycleResult, error) {
	result := &CycleResult{
		CycleID:   cycleID,
		TenantID:  tenant.TenantID,
		State:     constants.CycleStateStarted,
		StartedAt: time.Now().UTC(),
	}
	session := &service.OracleSession{TraceID: cycleID, TenantID: tenant.TenantID}
	var decisionLog []models.DecisionLogEntry

	if o.metrics != nil {
		o.metrics.RecordCycleStart(tenant.TenantID)
	}
	o.publish(ctx, constants.EventTypeCycleStarted, tenant.TenantID, map[string]interface{}{
		"cycle_id": cycleID,
	})
	o.logger.Info(ctx, "Cycle started",
		logger.String("tenant_id", tenant.TenantID),
		logger.String("cycle_id", cycleID),
	)

	logStage := func(stage constants.Stage, summary string, meta *models.OracleMeta) {
		decisionLog = append(decisionLog, models.DecisionLogEntry{
			Stage:   stage,
			Summary: summary,
			Meta:    meta,
			At:      time.Now().UTC(),
		})
	}

	// observe
	if aborted := o.checkpoint(ctx, result); aborted {
		return o.finish(ctx, result, session, "cancelled before observation"), nil
	}
	obs, err := observer.Observe(ctx, tenant)
	if err != nil {
		return o.abort(ctx, result, session, err), err
	}
	result.State = constants.CycleStateObserved
	observeSummary := fmt.Sprintf("%d tables scanned, %d signals", len(obs.Package.Tables), len(obs.Signals))
	if len(obs.Package.SkippedSources) > 0 {
		observeSummary += ", skipped: " + strings.Join(obs.Package.SkippedSources, ", ")
	}
	logStage(constants.StageObserve, observeSummary, nil)

	// triage
	if aborted := o.checkpoint(ctx, result); aborted {
		return o.finish(ctx, result, session, "cancelled before triage"), nil
	}
	triage, err := o.reasoner.Triage(ctx, session, tenant, obs)
	if err != nil {
		return o.abort(ctx, result, session, err), err
	}
	result.State = constants.CycleStateTriaged
	logStage(constants.StageTriage, triage.Summary, &triage.Meta)

	if !triage.Proceed {
		// The skip decision itself is the cycle's outcome, recorded durably:
		// no incident row is written, so the audit trail is its only trace.
		if o.auditRepo != nil {
			event := models.NewAuditEvent(tenant.TenantID, cycleID, "cycle_triage_skip", triage.Summary)
			if err := o.auditRepo.AppendAudit(ctx, event); err != nil {
				o.logger.Warn(ctx, "Triage skip audit append failed",
					logger.String("tenant_id", tenant.TenantID),
					logger.String("cycle_id", cycleID),
				)
			}
		}
		result.State = constants.CycleStateDone
		return o.finish(ctx, result, session, "triage: "+triage.Summary), nil
	}

	// reason
	reasoning, err := o.reasoner.Reason(ctx, session, tenant, obs)
	if err != nil {
		return o.abort(ctx, result, session, err), err
	}
	logStage(constants.StageReason, fmt.Sprintf("%d hypotheses generated", len(reasoning.Hypotheses)), &reasoning.Meta)
	if len(reasoning.Hypotheses) == 0 {
		result.State = constants.CycleStateDone
		return o.finish(ctx, result, session, "no actionable hypotheses"), nil
	}

	// investigate + verify across ranked hypotheses
	incident := o.investigateAndVerify(ctx, result, session, tenant, obs, reasoning.Hypotheses, cycleID, logStage)
	if result.State == constants.CycleStateAborted {
		return o.finish(ctx, result, session, "cancelled during investigation"), nil
	}

	// policy + remediation: false positives are archived knowledge, not
	// something to remediate or page anyone over.
	if incident.Status != constants.IncidentStatusFalsePositive {
		if aborted := o.checkpoint(ctx, result); aborted {
			return o.finish(ctx, result, session, "cancelled before policy evaluation"), nil
		}
		policy, err := o.policies.Evaluate(ctx, tenant.TenantID, incident.Type, incident.FinalConfidenceScore)
		if err != nil {
			return o.abort(ctx, result, session, err), err
		}
		result.State = constants.CycleStatePolicyEvaluated
		if policy == nil {
			logStage(constants.StagePolicy, "no policy matched", nil)
		} else {
			logStage(constants.StagePolicy, fmt.Sprintf("policy %q matched (playbook %q)", policy.Name, policy.Action.Playbook), nil)

			outcome, err := o.remediation.Remediate(ctx, session, tenant, incident, policy)
			if err != nil {
				return o.abort(ctx, result, session, err), err
			}
			decisionLog = append(decisionLog, outcome.Entries...)
			incident.RecommendedActions = append(incident.RecommendedActions, outcome.Actions...)
			if outcome.PendingToken != nil {
				result.State = constants.CycleStateRemediationPending
			} else {
				result.State = constants.CycleStateRemediationDone
			}
		}
	}

	// persist
	incident.DecisionLog = decisionLog
	if err := o.historian.Persist(ctx, incident); err != nil {
		return o.abort(ctx, result, session, err), err
	}
	result.State = constants.CycleStatePersisted
	result.Incident = incident
	o.publish(ctx, constants.EventTypeIncidentDetected, tenant.TenantID, map[string]interface{}{
		"cycle_id":    cycleID,
		"incident_id": incident.ID,
		"type":        incident.Type,
		"status":      incident.Status,
		"confidence":  incident.FinalConfidenceScore,
	})

	// escalate
	if incident.Status != constants.IncidentStatusFalsePositive {
		if _, err := o.escalator.Escalate(ctx, tenant, incident); err != nil {
			// Notification failure is reported but never undoes persistence.
			o.logger.Error(ctx, "Escalation failed", err,
				logger.String("tenant_id", tenant.TenantID),
				logger.String("incident_id", incident.ID),
			)
		}
		result.State = constants.CycleStateEscalated
	}

	result.State = constants.CycleStateDone
	return o.finish(ctx, result, session, fmt.Sprintf("incident %s (%s)", incident.ID, incident.Status)), nil
}

// investigateAndVerify walks the ranked hypotheses, accepting the first
// confirmed one. With every chain empty of usable evidence the cycle yields a
// FALSE_POSITIVE record instead of an alertable incident.
func (o *Orchestrator) investigateAndVerify(
	ctx context.Context,
	result *CycleResult,
	session *service.OracleSession,
	tenant *models.Tenant,
	obs *Observation,
	hypotheses []models.Hypothesis,
	cycleID string,
	logStage func(constants.Stage, string, *models.OracleMeta),
) *models.Incident {
	incidentType := classifyIncident(obs.Signals)
	source := primarySource(obs.Signals)

	incident := &models.Incident{
		ID:        uuid.NewString(),
		TenantID:  tenant.TenantID,
		CycleID:   cycleID,
		Type:      incidentType,
		Status:    constants.IncidentStatusDetected,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	totalUsable := 0
	var best *models.VerificationResult
	var bestHypothesis *models.Hypothesis
	var bestChain models.EvidenceChain

	for i := range hypotheses {
		if o.checkpoint(ctx, result) {
			return incident
		}
		h := hypotheses[i]

		chain := o.investigator.Investigate(ctx, tenant, obs, h)
		result.State = constants.CycleStateInvestigated
		logStage(constants.StageInvestigate, fmt.Sprintf("hypothesis %s: %d/%d steps usable",
			h.ID, chain.UsableCount(), len(chain)), nil)
		totalUsable += chain.UsableCount()

		verdict, meta, err := o.verifier.Verify(ctx, session, tenant, h, chain)
		if err != nil {
			logStage(constants.StageVerify, fmt.Sprintf("hypothesis %s verification failed: %v", h.ID, err), nil)
			continue
		}
		result.State = constants.CycleStateVerified
		logStage(constants.StageVerify, fmt.Sprintf("hypothesis %s: %s (%.0f)",
			h.ID, verdict.Status, verdict.VerificationConfidence), &meta)

		if best == nil || verdict.VerificationConfidence > best.VerificationConfidence {
			best = verdict
			bestHypothesis = &hypotheses[i]
			bestChain = chain
		}
		if verdict.Status == constants.VerificationConfirmed {
			break
		}
	}

	if totalUsable == 0 {
		incident.Status = constants.IncidentStatusFalsePositive
		incident.FinalConfidenceScore = 0
		if len(hypotheses) > 0 {
			incident.Hypothesis = &hypotheses[0]
		}
		return incident
	}

	incident.Hypothesis = bestHypothesis
	incident.EvidenceChain = bestChain
	incident.VerificationResult = best
	if best != nil {
		incident.FinalConfidenceScore = best.VerificationConfidence
		if best.Status == constants.VerificationConfirmed {
			incident.Status = constants.IncidentStatusVerified
		} else {
			incident.Status = constants.IncidentStatusInvestigating
		}
	}
	return incident
}

// checkpoint honors cooperative cancellation between stages.
func (o *Orchestrator) checkpoint(ctx context.Context, result *CycleResult) bool {
	select {
	case <-ctx.Done():
		result.State = constants.CycleStateAborted
		return true
	default:
		return false
	}
}

func (o *Orchestrator) abort(ctx context.Context, result *CycleResult, session *service.OracleSession, err error) *CycleResult {
	result.State = constants.CycleStateAborted
	result.Summary = err.Error()
	result.OracleUse = *session
	result.EndedAt = time.Now().UTC()

	o.publish(ctx, constants.EventTypeCycleError, result.TenantID, map[string]interface{}{
		"cycle_id": result.CycleID,
		"error":    err.Error(),
	})
	if o.metrics != nil {
		o.metrics.RecordCycleEnd(result.TenantID, result.State, result.EndedAt.Sub(result.StartedAt))
	}
	o.logger.Error(ctx, "Cycle aborted", err,
		logger.String("tenant_id", result.TenantID),
		logger.String("cycle_id", result.CycleID),
	)
	return result
}

func (o *Orchestrator) finish(ctx context.Context, result *CycleResult, session *service.OracleSession, summary string) *CycleResult {
	result.Summary = summary
	result.OracleUse = *session
	result.EndedAt = time.Now().UTC()

	o.publish(ctx, constants.EventTypeCycleCompleted, result.TenantID, map[string]interface{}{
		"cycle_id": result.CycleID,
		"state":    result.State,
		"summary":  summary,
	})
	if o.metrics != nil {
		o.metrics.RecordCycleEnd(result.TenantID, result.State, result.EndedAt.Sub(result.StartedAt))
	}
	o.logger.Info(ctx, "Cycle finished",
		logger.String("tenant_id", result.TenantID),
		logger.String("cycle_id", result.CycleID),
		logger.String("state", string(result.State)),
		logger.Int("oracle_calls", session.CallCount),
		logger.Int("cache_hits", session.CacheHits),
	)
	return result
}

func (o *Orchestrator) publish(ctx context.Context, eventType constants.EventType, tenantID string, data map[string]interface{}) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, models.NewStreamEvent(eventType, tenantID, data))
}

// classifyIncident maps the strongest signal's metric onto an incident type.
func classifyIncident(signals []models.AnomalySignal) constants.IncidentType {
	var strongest *models.AnomalySignal
	for i := range signals {
		if strongest == nil || severityRank(signals[i].Severity) > severityRank(strongest.Severity) {
			strongest = &signals[i]
		}
	}
	if strongest == nil {
		return constants.IncidentTypeUnknown
	}
	switch strongest.Metric {
	case "null_rate":
		return constants.IncidentTypeDataIntegrityFailure
	case "row_count":
		return constants.IncidentTypeRowCountDrop
	case "freshness":
		return constants.IncidentTypeFreshnessViolation
	case "schema":
		return constants.IncidentTypeSchemaChange
	case "pipeline":
		return constants.IncidentTypeUpstreamDelay
	default:
		return constants.IncidentTypeUnknown
	}
}

func primarySource(signals []models.AnomalySignal) string {
	var strongest *models.AnomalySignal
	for i := range signals {
		if strongest == nil || severityRank(signals[i].Severity) > severityRank(strongest.Severity) {
			strongest = &signals[i]
		}
	}
	if strongest == nil {
		return "unknown"
	}
	return strongest.Source
}
