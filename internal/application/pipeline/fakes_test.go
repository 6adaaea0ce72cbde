package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
)

// fallbackGateway resolves every request through its deterministic fallback,
// the same path the real gateway takes without credentials.
type fallbackGateway struct{}

func (g *fallbackGateway) Generate(_ context.Context, session *service.OracleSession, req service.OracleRequest) (*service.OracleResponse, error) {
	result, err := req.Fallback()
	if err != nil {
		return nil, errors.ErrOracleError(req.Stage, err)
	}
	return &service.OracleResponse{
		Result: result,
		Meta: models.OracleMeta{
			Provider:  constants.OracleFallbackProvider,
			Model:     "local",
			APIUsed:   false,
			Timestamp: time.Now().UTC(),
		},
	}, nil
}

// scriptedGateway returns canned results keyed by stage, falling back to the
// request fallback for stages it has no script for.
type scriptedGateway struct {
	results map[constants.Stage]map[string]interface{}
}

func (g *scriptedGateway) Generate(ctx context.Context, session *service.OracleSession, req service.OracleRequest) (*service.OracleResponse, error) {
	if result, ok := g.results[req.Stage]; ok {
		session.CallCount++
		return &service.OracleResponse{
			Result: result,
			Meta: models.OracleMeta{
				Provider:  "scripted",
				Model:     "scripted",
				APIUsed:   true,
				Timestamp: time.Now().UTC(),
			},
		}, nil
	}
	return (&fallbackGateway{}).Generate(ctx, session, req)
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

func (r *fakeAuditRepo) AppendAudit(_ context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAuditRepo) ListAudit(_ context.Context, tenantID string, _ int) ([]*models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range r.events {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) AppendPipelineEvent(_ context.Context, _ *models.PipelineEvent) error {
	return nil
}

func (r *fakeAuditRepo) RecentPipelineEvents(_ context.Context, _ string, _ int) ([]*models.PipelineEvent, error) {
	return nil, nil
}

type fakeMetricsSource struct {
	pkg models.ObservationPackage
	err error
}

func (s *fakeMetricsSource) Snapshot(context.Context, *models.Tenant, []string) (models.ObservationPackage, error) {
	if s.err != nil {
		return models.ObservationPackage{}, s.err
	}
	return s.pkg, nil
}

type fakeTenantRepo struct {
	tenants map[string]*models.Tenant
}

func newFakeTenantRepo(tenants ...*models.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: make(map[string]*models.Tenant)}
	for _, t := range tenants {
		r.tenants[t.TenantID] = t
	}
	return r
}

func (r *fakeTenantRepo) Save(_ context.Context, tenant *models.Tenant) error {
	r.tenants[tenant.TenantID] = tenant
	return nil
}

func (r *fakeTenantRepo) FindByID(_ context.Context, tenantID string) (*models.Tenant, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, errors.ErrTenantNotFound(tenantID)
	}
	return t, nil
}

func (r *fakeTenantRepo) FindAll(context.Context, int, int) ([]*models.Tenant, int64, error) {
	var all []*models.Tenant
	for _, t := range r.tenants {
		all = append(all, t)
	}
	return all, int64(len(all)), nil
}

func (r *fakeTenantRepo) UpdateConfig(_ context.Context, tenant *models.Tenant) error {
	r.tenants[tenant.TenantID] = tenant
	return nil
}

func (r *fakeTenantRepo) UpdateStatus(_ context.Context, tenantID string, status constants.TenantStatus) error {
	if t, ok := r.tenants[tenantID]; ok {
		t.Status = status
	}
	return nil
}

func (r *fakeTenantRepo) Delete(_ context.Context, tenantID string, _ bool) error {
	delete(r.tenants, tenantID)
	return nil
}

func (r *fakeTenantRepo) Exists(_ context.Context, tenantID string) (bool, error) {
	_, ok := r.tenants[tenantID]
	return ok, nil
}

var _ repository.TenantRepository = (*fakeTenantRepo)(nil)

// fakeIncidentRepo records appended incidents in memory. failAppends makes the
// first N Append calls fail to exercise historian retries.
type fakeIncidentRepo struct {
	mu          sync.Mutex
	appended    []*models.Incident
	failAppends int
	updates     int
}

func (r *fakeIncidentRepo) Append(_ context.Context, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppends > 0 {
		r.failAppends--
		return fmt.Errorf("disk full")
	}
	r.appended = append(r.appended, incident)
	return nil
}

func (r *fakeIncidentRepo) FindByID(_ context.Context, _, incidentID string) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.appended {
		if in.ID == incidentID {
			return in, nil
		}
	}
	return nil, errors.ErrIncidentNotFound(incidentID)
}

func (r *fakeIncidentRepo) List(_ context.Context, tenantID string, _ repository.IncidentFilter) ([]*models.Incident, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Incident
	for _, in := range r.appended {
		if in.TenantID == tenantID {
			out = append(out, in)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeIncidentRepo) Archive(context.Context, string, string) (bool, error) { return false, nil }
func (r *fakeIncidentRepo) Delete(context.Context, string, string) (bool, error)  { return false, nil }
func (r *fakeIncidentRepo) BulkArchive(context.Context, string, []string) (int64, error) {
	return 0, nil
}
func (r *fakeIncidentRepo) BulkDelete(context.Context, string, []string) (int64, error) {
	return 0, nil
}

func (r *fakeIncidentRepo) UpdateRemediation(context.Context, string, string, []string, []models.DecisionLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return nil
}

func (r *fakeIncidentRepo) Stats(context.Context, string) (*repository.IncidentStats, error) {
	return &repository.IncidentStats{}, nil
}

func (r *fakeIncidentRepo) MTTR(context.Context, string, time.Duration) (*repository.MTTRStats, error) {
	return &repository.MTTRStats{}, nil
}

func (r *fakeIncidentRepo) Trends(context.Context, string, time.Duration) ([]repository.TrendBucket, error) {
	return nil, nil
}

var _ repository.IncidentRepository = (*fakeIncidentRepo)(nil)

type fakePolicyRepo struct {
	policies []*models.Policy
}

func (r *fakePolicyRepo) Upsert(_ context.Context, p *models.Policy) error {
	r.policies = append(r.policies, p)
	return nil
}

func (r *fakePolicyRepo) FindByID(_ context.Context, _, policyID string) (*models.Policy, error) {
	for _, p := range r.policies {
		if p.ID == policyID {
			return p, nil
		}
	}
	return nil, errors.ErrPolicyNotFound(policyID)
}

func (r *fakePolicyRepo) ListEnabled(_ context.Context, tenantID string) ([]*models.Policy, error) {
	var out []*models.Policy
	for _, p := range r.policies {
		if p.TenantID == tenantID && p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) ListAll(_ context.Context, tenantID string) ([]*models.Policy, error) {
	return r.policies, nil
}

func (r *fakePolicyRepo) Delete(context.Context, string, string) (bool, error) { return false, nil }

var _ repository.PolicyRepository = (*fakePolicyRepo)(nil)

type fakeApprovalRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.ApprovalToken
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{tokens: make(map[string]*models.ApprovalToken)}
}

func (r *fakeApprovalRepo) Save(_ context.Context, token *models.ApprovalToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.TokenID] = &cp
	return nil
}

func (r *fakeApprovalRepo) FindByID(_ context.Context, _, tokenID string) (*models.ApprovalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return nil, errors.ErrNotFound("approval token not found: " + tokenID)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeApprovalRepo) ConsumePending(_ context.Context, token *models.ApprovalToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tokens[token.TokenID]
	if !ok || existing.Status != constants.ApprovalStatusPending {
		return false, nil
	}
	cp := *token
	r.tokens[token.TokenID] = &cp
	return true, nil
}

func (r *fakeApprovalRepo) ListPending(_ context.Context, tenantID string) ([]*models.ApprovalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ApprovalToken
	for _, t := range r.tokens {
		if t.TenantID == tenantID && t.Status == constants.ApprovalStatusPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) ExpireOlderThan(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.Status == constants.ApprovalStatusPending && t.IsExpired(now) {
			t.Status = constants.ApprovalStatusExpired
			n++
		}
	}
	return n, nil
}

var _ repository.ApprovalRepository = (*fakeApprovalRepo)(nil)

type fakeInsightRepo struct {
	mu       sync.Mutex
	insights []*models.PatternInsight
}

func (r *fakeInsightRepo) UpsertBySignature(_ context.Context, insight *models.PatternInsight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.insights {
		if existing.PatternSignature == insight.PatternSignature {
			r.insights[i] = insight
			return nil
		}
	}
	r.insights = append(r.insights, insight)
	return nil
}

func (r *fakeInsightRepo) ListByTenant(_ context.Context, tenantID string) ([]*models.PatternInsight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PatternInsight
	for _, ins := range r.insights {
		if ins.TenantID == tenantID {
			out = append(out, ins)
		}
	}
	return out, nil
}

var _ repository.InsightRepository = (*fakeInsightRepo)(nil)

// staticTool returns the same evidence for every invocation.
type staticTool struct {
	name     string
	evidence string
	err      error
	panics   bool
	calls    int
}

func (t *staticTool) Name() string { return t.name }

func (t *staticTool) Invoke(context.Context, service.ToolContext) (string, error) {
	t.calls++
	if t.panics {
		panic("tool exploded")
	}
	return t.evidence, t.err
}

// recordChannel captures notifications, optionally failing the first N sends.
type recordChannel struct {
	mu        sync.Mutex
	name      string
	sent      []service.Notification
	failFirst int
}

func (c *recordChannel) Name() string { return c.name }

func (c *recordChannel) Send(_ context.Context, n service.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFirst > 0 {
		c.failFirst--
		return fmt.Errorf("connection reset")
	}
	c.sent = append(c.sent, n)
	return nil
}

func (c *recordChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// recordExecutor captures playbook executions.
type recordExecutor struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (e *recordExecutor) Execute(_ context.Context, _, playbook string, _ map[string]string) ([]service.StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, playbook)
	if e.err != nil {
		return []service.StepResult{{Step: "step-1", Status: "failed", Detail: e.err.Error()}}, e.err
	}
	return []service.StepResult{{Step: "step-1", Status: "ok"}}, nil
}

func (e *recordExecutor) executedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

// blockingLease simulates a busy tenant slot.
type blockingLease struct {
	busy map[string]bool
}

func (l *blockingLease) TryAcquire(_ context.Context, tenantID string) (bool, error) {
	return !l.busy[tenantID], nil
}

func (l *blockingLease) Release(context.Context, string) error { return nil }
