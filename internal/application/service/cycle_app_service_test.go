package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/application/pipeline"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
)

func TestTriggerCycleResponseReportsDetection(t *testing.T) {
	result := &pipeline.CycleResult{
		CycleID:  "c-1",
		TenantID: "demo",
		State:    constants.CycleStateDone,
		Incident: &models.Incident{ID: "inc-1", FinalConfidenceScore: 85},
	}

	resp := toTriggerCycleResponse(result)
	assert.True(t, resp.IncidentDetected)
	assert.Equal(t, "inc-1", resp.IncidentID)
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, float64(85), *resp.Confidence)
}

func TestTriggerCycleResponseCleanCycle(t *testing.T) {
	resp := toTriggerCycleResponse(&pipeline.CycleResult{
		CycleID:  "c-2",
		TenantID: "demo",
		State:    constants.CycleStateDone,
	})

	assert.False(t, resp.IncidentDetected)
	assert.Empty(t, resp.IncidentID)
	assert.Nil(t, resp.Confidence, "confidence is meaningless without an incident")
}
