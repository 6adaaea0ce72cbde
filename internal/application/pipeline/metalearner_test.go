package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

func historicalIncident(id, source string, itype constants.IncidentType, status constants.IncidentStatus) *models.Incident {
	return &models.Incident{
		ID:        id,
		TenantID:  "demo",
		Source:    source,
		Type:      itype,
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestAnalyzeTenantFlagsChronicOffender(t *testing.T) {
	incidents := &fakeIncidentRepo{}
	for _, in := range []*models.Incident{
		historicalIncident("inc-1", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
		historicalIncident("inc-2", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
		historicalIncident("inc-3", "inventory", constants.IncidentTypeFreshnessViolation, constants.IncidentStatusVerified),
	} {
		require.NoError(t, incidents.Append(context.Background(), in))
	}
	insights := &fakeInsightRepo{}
	ml := NewMetaLearner(incidents, insights, newFakeTenantRepo(), time.Hour, logger.NewNoopLogger())

	written, err := ml.AnalyzeTenant(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, written, 1, "the lone inventory incident is below the recurrence bar")

	ins := written[0]
	assert.Equal(t, "orders.user_id", ins.Source)
	assert.Equal(t, constants.IncidentTypeDataIntegrityFailure, ins.IncidentType)
	assert.Equal(t, 2, ins.Frequency)
	assert.Equal(t, "orders.user_id|DATA_INTEGRITY_FAILURE", ins.PatternSignature)
	assert.Equal(t, models.RecommendationForFrequency(2), ins.Recommendation)
}

func TestAnalyzeTenantExcludesFalsePositives(t *testing.T) {
	incidents := &fakeIncidentRepo{}
	for _, in := range []*models.Incident{
		historicalIncident("inc-1", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusFalsePositive),
		historicalIncident("inc-2", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusFalsePositive),
		historicalIncident("inc-3", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
	} {
		require.NoError(t, incidents.Append(context.Background(), in))
	}
	ml := NewMetaLearner(incidents, &fakeInsightRepo{}, newFakeTenantRepo(), time.Hour, logger.NewNoopLogger())

	written, err := ml.AnalyzeTenant(context.Background(), "demo")
	require.NoError(t, err)
	assert.Empty(t, written, "dismissed detections never count toward recurrence")
}

func TestAnalyzeTenantReanalysisUpdatesExistingInsight(t *testing.T) {
	incidents := &fakeIncidentRepo{}
	for _, in := range []*models.Incident{
		historicalIncident("inc-1", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
		historicalIncident("inc-2", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
	} {
		require.NoError(t, incidents.Append(context.Background(), in))
	}
	insights := &fakeInsightRepo{}
	ml := NewMetaLearner(incidents, insights, newFakeTenantRepo(), time.Hour, logger.NewNoopLogger())

	_, err := ml.AnalyzeTenant(context.Background(), "demo")
	require.NoError(t, err)

	require.NoError(t, incidents.Append(context.Background(),
		historicalIncident("inc-4", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified)))
	_, err = ml.AnalyzeTenant(context.Background(), "demo")
	require.NoError(t, err)

	stored, err := insights.ListByTenant(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, stored, 1, "reanalysis replaces by signature, never duplicates")
	assert.Equal(t, 3, stored[0].Frequency)
}

func TestRunOnceSkipsInactiveTenants(t *testing.T) {
	suspended := models.NewTenant("frozen", "Frozen")
	suspended.Status = constants.TenantStatusSuspended

	incidents := &fakeIncidentRepo{}
	for _, in := range []*models.Incident{
		historicalIncident("inc-1", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
		historicalIncident("inc-2", "orders.user_id", constants.IncidentTypeDataIntegrityFailure, constants.IncidentStatusVerified),
	} {
		in.TenantID = "frozen"
		require.NoError(t, incidents.Append(context.Background(), in))
	}
	insights := &fakeInsightRepo{}
	ml := NewMetaLearner(incidents, insights, newFakeTenantRepo(suspended), time.Hour, logger.NewNoopLogger())

	ml.RunOnce(context.Background())

	stored, err := insights.ListByTenant(context.Background(), "frozen")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
