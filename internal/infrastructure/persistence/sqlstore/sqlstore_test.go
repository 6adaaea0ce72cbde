package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

func testConn(t *testing.T) *DBConnection {
	t.Helper()
	conn, err := NewDBConnection(context.Background(), &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func storedIncident(id, tenantID string, confidence float64) *models.Incident {
	return &models.Incident{
		ID:                   id,
		TenantID:             tenantID,
		Type:                 constants.IncidentTypeDataIntegrityFailure,
		Status:               constants.IncidentStatusVerified,
		Source:               "orders.user_id",
		FinalConfidenceScore: confidence,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestIncidentAppendAndFindByID(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	in := storedIncident("inc-1", "demo", 85)
	in.RecommendedActions = []string{"playbook \"notify_oncall\" executed"}
	in.DecisionLog = []models.DecisionLogEntry{{Stage: constants.StageObserve, Summary: "1 signal", At: time.Now().UTC()}}
	require.NoError(t, repo.Append(context.Background(), in))

	got, err := repo.FindByID(context.Background(), "demo", "inc-1")
	require.NoError(t, err)
	assert.Equal(t, constants.IncidentTypeDataIntegrityFailure, got.Type)
	assert.Equal(t, float64(85), got.FinalConfidenceScore)
	require.Len(t, got.DecisionLog, 1)
	assert.Equal(t, constants.StageObserve, got.DecisionLog[0].Stage)
}

func TestIncidentFindByIDIsTenantScoped(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, repo.Append(context.Background(), storedIncident("inc-1", "alpha", 80)))

	_, err := repo.FindByID(context.Background(), "beta", "inc-1")
	require.Error(t, err, "one tenant's incidents are invisible to another")
	assert.True(t, errors.IsNotFound(err))
}

func TestIncidentListFiltersAndOrders(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	older := storedIncident("inc-1", "demo", 60)
	older.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	newer := storedIncident("inc-2", "demo", 90)
	newer.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Append(context.Background(), older))
	require.NoError(t, repo.Append(context.Background(), newer))
	require.NoError(t, repo.Append(context.Background(), storedIncident("inc-3", "other", 95)))

	all, total, err := repo.List(context.Background(), "demo", repository.IncidentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	assert.Equal(t, "inc-2", all[0].ID, "newest first")

	confident, _, err := repo.List(context.Background(), "demo", repository.IncidentFilter{MinConfidence: 70})
	require.NoError(t, err)
	require.Len(t, confident, 1)
	assert.Equal(t, "inc-2", confident[0].ID)
}

func TestIncidentArchiveIsIdempotent(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, repo.Append(context.Background(), storedIncident("inc-1", "demo", 85)))

	ok, err := repo.Archive(context.Background(), "demo", "inc-1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(context.Background(), "demo", "inc-1")
	require.NoError(t, err)
	assert.True(t, got.Archived)
	assert.Equal(t, constants.IncidentStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	ok, err = repo.Archive(context.Background(), "demo", "inc-1")
	require.NoError(t, err)
	assert.True(t, ok, "re-archiving is a no-op success")

	ok, err = repo.Archive(context.Background(), "demo", "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncidentMTTRCountsArchivedOnly(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	resolved := storedIncident("inc-1", "demo", 85)
	resolved.CreatedAt = time.Now().UTC().Add(-3 * time.Hour)
	require.NoError(t, repo.Append(context.Background(), resolved))
	_, err := repo.Archive(context.Background(), "demo", "inc-1")
	require.NoError(t, err)

	// Open incidents never contribute to resolution time.
	require.NoError(t, repo.Append(context.Background(), storedIncident("inc-2", "demo", 85)))

	stats, err := repo.MTTR(context.Background(), "demo", constants.DefaultMTTRWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.InDelta(t, float64(3*time.Hour), float64(stats.Mean), float64(time.Minute))
	assert.Equal(t, stats.Mean, stats.P95, "a single sample is its own p95")
}

func TestIncidentBulkArchive(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	for _, id := range []string{"inc-1", "inc-2", "inc-3"} {
		require.NoError(t, repo.Append(context.Background(), storedIncident(id, "demo", 80)))
	}

	n, err := repo.BulkArchive(context.Background(), "demo", []string{"inc-1", "inc-2", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	archived := true
	remaining, _, err := repo.List(context.Background(), "demo", repository.IncidentFilter{Archived: &archived})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestIncidentUpdateRemediationAppends(t *testing.T) {
	conn := testConn(t)
	repo := NewIncidentRepository(conn.DB(), logger.NewNoopLogger())

	in := storedIncident("inc-1", "demo", 85)
	in.DecisionLog = []models.DecisionLogEntry{{Stage: constants.StageObserve, Summary: "start", At: time.Now().UTC()}}
	require.NoError(t, repo.Append(context.Background(), in))

	err := repo.UpdateRemediation(context.Background(), "demo", "inc-1",
		[]string{"playbook \"quarantine_table\" approved"},
		[]models.DecisionLogEntry{{Stage: constants.StageRemediation, Summary: "approved by alice", At: time.Now().UTC()}},
	)
	require.NoError(t, err)

	got, err := repo.FindByID(context.Background(), "demo", "inc-1")
	require.NoError(t, err)
	assert.Len(t, got.RecommendedActions, 1)
	require.Len(t, got.DecisionLog, 2, "entries are appended, never replaced")
	assert.Equal(t, constants.StageRemediation, got.DecisionLog[1].Stage)
}

func TestApprovalConsumePendingIsSingleUse(t *testing.T) {
	conn := testConn(t)
	repo := NewApprovalRepository(conn.DB(), logger.NewNoopLogger())

	token := models.NewApprovalToken("tok-1", "demo", "inc-1", "quarantine_table", nil, time.Hour)
	require.NoError(t, repo.Save(context.Background(), token))

	approved := *token
	approved.Consume(constants.ApprovalStatusApproved, "alice", "ok", time.Now().UTC())
	won, err := repo.ConsumePending(context.Background(), &approved)
	require.NoError(t, err)
	assert.True(t, won)

	rejected := *token
	rejected.Consume(constants.ApprovalStatusRejected, "bob", "no", time.Now().UTC())
	won, err = repo.ConsumePending(context.Background(), &rejected)
	require.NoError(t, err)
	assert.False(t, won, "the second decision loses the compare-and-set")

	got, err := repo.FindByID(context.Background(), "demo", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ApprovalStatusApproved, got.Status)
	assert.Equal(t, "alice", got.DecidedBy)
}

func TestApprovalExpireOlderThanSweepsPendingOnly(t *testing.T) {
	conn := testConn(t)
	repo := NewApprovalRepository(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, repo.Save(context.Background(), models.NewApprovalToken("overdue", "demo", "", "pb", nil, -time.Minute)))
	require.NoError(t, repo.Save(context.Background(), models.NewApprovalToken("fresh", "demo", "", "pb", nil, time.Hour)))

	decided := models.NewApprovalToken("decided", "demo", "", "pb", nil, -time.Minute)
	decided.Consume(constants.ApprovalStatusRejected, "bob", "no", time.Now().UTC())
	require.NoError(t, repo.Save(context.Background(), decided))

	n, err := repo.ExpireOlderThan(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err := repo.ListPending(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].TokenID)
}

func TestTenantSaveFindAndExists(t *testing.T) {
	conn := testConn(t)
	repo := NewTenantRepository(conn.DB(), logger.NewNoopLogger())

	tenant := models.NewTenant("demo", "Demo Corp")
	tenant.Config.ConfidenceThreshold = 80
	require.NoError(t, repo.Save(context.Background(), tenant))

	got, err := repo.FindByID(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "Demo Corp", got.TenantName)
	assert.Equal(t, float64(80), got.Config.ConfidenceThreshold)

	ok, err := repo.Exists(context.Background(), "demo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByID(context.Background(), "ghost")
	assert.True(t, errors.IsNotFound(err))
}

func TestTenantUpdateStatus(t *testing.T) {
	conn := testConn(t)
	repo := NewTenantRepository(conn.DB(), logger.NewNoopLogger())

	require.NoError(t, repo.Save(context.Background(), models.NewTenant("demo", "Demo")))
	require.NoError(t, repo.UpdateStatus(context.Background(), "demo", constants.TenantStatusSuspended))

	got, err := repo.FindByID(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, constants.TenantStatusSuspended, got.Status)
	assert.True(t, got.IsSuspended())
}

func TestPolicyListEnabledOrdersByPriority(t *testing.T) {
	conn := testConn(t)
	repo := NewPolicyRepository(conn.DB(), logger.NewNoopLogger())

	for _, p := range []*models.Policy{
		{ID: "pol-b", TenantID: "demo", Name: "second", Enabled: true, Priority: 20},
		{ID: "pol-a", TenantID: "demo", Name: "first", Enabled: true, Priority: 10},
		{ID: "pol-c", TenantID: "demo", Name: "disabled", Enabled: false, Priority: 1},
		{ID: "pol-d", TenantID: "other", Name: "foreign", Enabled: true, Priority: 1},
	} {
		require.NoError(t, repo.Upsert(context.Background(), p))
	}

	enabled, err := repo.ListEnabled(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, "pol-a", enabled[0].ID)
	assert.Equal(t, "pol-b", enabled[1].ID)
}

func TestInsightUpsertBySignatureReplaces(t *testing.T) {
	conn := testConn(t)
	repo := NewInsightRepository(conn.DB(), logger.NewNoopLogger())

	first := &models.PatternInsight{
		ID:               "ins-1",
		TenantID:         "demo",
		Source:           "orders.user_id",
		IncidentType:     constants.IncidentTypeDataIntegrityFailure,
		Frequency:        2,
		PatternSignature: "orders.user_id|DATA_INTEGRITY_FAILURE",
		AnalyzedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertBySignature(context.Background(), first))

	second := *first
	second.ID = "ins-2"
	second.Frequency = 3
	require.NoError(t, repo.UpsertBySignature(context.Background(), &second))

	insights, err := repo.ListByTenant(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, 3, insights[0].Frequency)
}
