package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/internal/infrastructure/persistence/memstore"
	"github.com/turtacn/sentra/internal/infrastructure/tools"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// cycleHarness wires an orchestrator over in-memory fakes. Each field can be
// customized before build() assembles the orchestrator.
type cycleHarness struct {
	tenants    *fakeTenantRepo
	audits     *fakeAuditRepo
	source     *fakeMetricsSource
	comparator *cannedComparator
	incidents  *fakeIncidentRepo
	policies   *fakePolicyRepo
	approvals  *fakeApprovalRepo
	insights   *fakeInsightRepo
	executor   *recordExecutor
	channel    *recordChannel
	registry   *tools.Registry
	lease      service.CycleLease
}

func newCycleHarness(tenant *models.Tenant, pkg models.ObservationPackage) *cycleHarness {
	return &cycleHarness{
		tenants:    newFakeTenantRepo(tenant),
		audits:     &fakeAuditRepo{},
		source:     &fakeMetricsSource{pkg: pkg},
		comparator: &cannedComparator{result: models.VerificationResult{IsVerified: true, VerificationConfidence: 85}},
		incidents:  &fakeIncidentRepo{},
		policies:   &fakePolicyRepo{},
		approvals:  newFakeApprovalRepo(),
		insights:   &fakeInsightRepo{},
		executor:   &recordExecutor{},
		channel:    &recordChannel{name: "console"},
		registry:   tools.NewRegistry(&staticTool{name: "check_baseline_metrics", evidence: "null_rate above baseline"}),
		lease:      memstore.NewCycleLease(),
	}
}

func (h *cycleHarness) build() *Orchestrator {
	log := logger.NewNoopLogger()
	gateway := &fallbackGateway{}
	historian := NewHistorian(h.incidents, nil, log)
	historian.sleep = func(time.Duration) {}
	escalator := NewEscalator([]service.NotificationChannel{h.channel}, memstore.NewCooldownStore(), nil, log)
	escalator.sleep = func(time.Duration) {}

	return NewOrchestrator(
		h.tenants,
		h.audits,
		NewObserver(h.source, nil, log),
		NewReasoner(gateway, h.insights, log),
		NewInvestigator(h.registry, log),
		NewVerifier(h.comparator, log),
		NewPolicyEngine(h.policies, log),
		NewRemediationEngine(gateway, h.executor, h.approvals, h.incidents, time.Hour, log),
		historian,
		escalator,
		h.lease,
		nil,
		nil,
		log,
	)
}

func healthyPackage() models.ObservationPackage {
	return models.ObservationPackage{Tables: []models.TableMetrics{{
		Table:    "orders",
		RowCount: 1000, BaselineRowCount: 1000,
		FreshnessMinutes: 5,
		Columns: []models.ColumnStats{
			{Name: "user_id", NullRate: 0.01},
		},
		BaselineNullRates: map[string]float64{"user_id": 0.01},
	}}}
}

func nullSpikePackage() models.ObservationPackage {
	return models.ObservationPackage{Tables: []models.TableMetrics{{
		Table:    "orders",
		RowCount: 1000, BaselineRowCount: 1000,
		FreshnessMinutes: 5,
		Columns: []models.ColumnStats{
			{Name: "user_id", NullRate: 0.50},
		},
		BaselineNullRates: map[string]float64{"user_id": 0.05},
	}}}
}

func TestRunCycleHealthyDataStopsAtTriage(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)
	assert.Nil(t, result.Incident)
	assert.Empty(t, h.incidents.appended, "a clean scan produces no incident record")
	assert.Zero(t, h.channel.sentCount())
}

func TestRunCycleNullSpikeProducesOneVerifiedIncident(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)

	require.NotNil(t, result.Incident)
	assert.Equal(t, constants.IncidentTypeDataIntegrityFailure, result.Incident.Type)
	assert.Equal(t, constants.IncidentStatusVerified, result.Incident.Status)
	assert.Equal(t, float64(85), result.Incident.FinalConfidenceScore)
	assert.Equal(t, "orders.user_id", result.Incident.Source)
	require.NotEmpty(t, result.Incident.DecisionLog, "every stage leaves an audit entry")

	require.Len(t, h.incidents.appended, 1)
	assert.Equal(t, 1, h.channel.sentCount(), "a verified incident above threshold pages")
}

func TestRunCycleAllToolsFailingYieldsFalsePositive(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	h.registry = tools.NewRegistry(
		&staticTool{name: "check_baseline_metrics", err: assert.AnError},
		&staticTool{name: "query_git_diff", err: assert.AnError},
		&staticTool{name: "check_etl_mapping", err: assert.AnError},
	)
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)

	require.NotNil(t, result.Incident)
	assert.Equal(t, constants.IncidentStatusFalsePositive, result.Incident.Status)
	assert.Zero(t, result.Incident.FinalConfidenceScore)
	assert.Len(t, h.incidents.appended, 1, "false positives are archived knowledge")
	assert.Zero(t, h.channel.sentCount(), "nobody gets paged for a false positive")
}

func TestRunCycleMatchedPolicyRunsPlaybook(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	h.policies = &fakePolicyRepo{policies: []*models.Policy{{
		ID:       "pol-1",
		TenantID: "demo",
		Name:     "auto notify",
		Enabled:  true,
		Priority: 10,
		Match:    models.PolicyMatch{IncidentTypes: []constants.IncidentType{constants.IncidentTypeDataIntegrityFailure}},
		Action:   models.PolicyAction{Playbook: "notify_oncall"},
	}}}
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)
	assert.Equal(t, []string{"notify_oncall"}, h.executor.executed)
	require.NotNil(t, result.Incident)
	assert.NotEmpty(t, result.Incident.RecommendedActions)
}

func TestRunCycleSuspendedTenantRefused(t *testing.T) {
	suspended := models.NewTenant("frozen", "Frozen")
	suspended.Status = constants.TenantStatusSuspended
	h := newCycleHarness(suspended, healthyPackage())
	orch := h.build()

	_, err := orch.RunCycle(context.Background(), "frozen")
	require.Error(t, err)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeTenantSuspended, serr.Code())
}

func TestRunCycleUnknownTenantRefused(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	orch := h.build()

	_, err := orch.RunCycle(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRunCycleSecondTriggerFailsFast(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	h.lease = &blockingLease{busy: map[string]bool{"demo": true}}
	orch := h.build()

	_, err := orch.RunCycle(context.Background(), "demo")
	require.Error(t, err)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeCycleAlreadyRunning, serr.Code())
}

func TestRunCycleSourceOutageAborts(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	h.source = &fakeMetricsSource{err: errors.ErrSourceUnavailable("warehouse", assert.AnError)}
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, constants.CycleStateAborted, result.State)
	assert.Empty(t, h.incidents.appended)
}

func TestRunCyclePersistFailureAborts(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	h.incidents.failAppends = constants.PersistMaxAttempts
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, constants.CycleStateAborted, result.State)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodePersistenceFailure, serr.Code())
}

func TestRunCycleCancelledContextAbortsCooperatively(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	orch := h.build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.RunCycle(ctx, "demo")
	if err != nil {
		// The semaphore acquire observed the cancellation first.
		assert.ErrorIs(t, err, context.Canceled)
		return
	}
	assert.Equal(t, constants.CycleStateAborted, result.State)
	assert.Empty(t, h.incidents.appended)
}

func TestRunCycleEscalationFailureDoesNotUndoPersistence(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), nullSpikePackage())
	h.channel = &recordChannel{name: "console", failFirst: constants.NotificationMaxAttempts}
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err, "notification trouble never fails the cycle")
	assert.Equal(t, constants.CycleStateDone, result.State)
	assert.Len(t, h.incidents.appended, 1)
}

func TestRunCycleConcurrentTenantsProceedIndependently(t *testing.T) {
	alpha := models.NewTenant("alpha", "Alpha")
	beta := models.NewTenant("beta", "Beta")
	h := newCycleHarness(alpha, nullSpikePackage())
	require.NoError(t, h.tenants.Save(context.Background(), beta))
	orch := h.build()

	type outcome struct {
		result *CycleResult
		err    error
	}
	results := make(chan outcome, 2)
	for _, id := range []string{"alpha", "beta"} {
		go func(tenantID string) {
			r, err := orch.RunCycle(context.Background(), tenantID)
			results <- outcome{r, err}
		}(id)
	}

	for i := 0; i < 2; i++ {
		out := <-results
		require.NoError(t, out.err)
		assert.Equal(t, constants.CycleStateDone, out.result.State)
	}
	assert.Len(t, h.incidents.appended, 2)
}

func TestRunCycleFailureDrillUsesSimulatorSource(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	orch := h.build()
	orch.SetFailureSimulator(&fakeMetricsSource{pkg: nullSpikePackage()})

	result, err := orch.RunCycleOpts(context.Background(), "demo", CycleOptions{SimulateFailure: true})
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)
	require.NotNil(t, result.Incident, "the drill injects a defect the pipeline must catch")
	assert.Len(t, h.incidents.appended, 1)

	// The production source still reports healthy data afterwards.
	result, err = orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Nil(t, result.Incident)
	assert.Len(t, h.incidents.appended, 1)
}

func TestRunCycleFailureDrillWithoutSimulatorFallsBack(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	orch := h.build()

	result, err := orch.RunCycleOpts(context.Background(), "demo", CycleOptions{SimulateFailure: true})
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)
	assert.Nil(t, result.Incident)
}

func TestRunCycleTriageSkipLeavesAuditTrace(t *testing.T) {
	h := newCycleHarness(models.NewTenant("demo", "Demo"), healthyPackage())
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.CycleStateDone, result.State)
	assert.Nil(t, result.Incident)

	// No incident row exists, so the skip must be findable in the audit trail.
	events, err := h.audits.ListAudit(context.Background(), "demo", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cycle_triage_skip", events[0].Action)
	assert.Equal(t, result.CycleID, events[0].Actor)
}

func TestRunCycleDecisionLogNamesSkippedSources(t *testing.T) {
	pkg := nullSpikePackage()
	pkg.Tables = append(pkg.Tables, models.TableMetrics{
		Table:     "users",
		SkipError: "connection refused",
	})
	pkg.SkippedSources = []string{"users"}

	h := newCycleHarness(models.NewTenant("demo", "Demo"), pkg)
	orch := h.build()

	result, err := orch.RunCycle(context.Background(), "demo")
	require.NoError(t, err)
	require.NotNil(t, result.Incident)
	require.NotEmpty(t, result.Incident.DecisionLog)
	assert.Contains(t, result.Incident.DecisionLog[0].Summary, "skipped: users")
}
