package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// CycleHandler triggers detection cycles and ingests pipeline run reports.
type CycleHandler struct {
	cycles service.CycleAppService
	log    logger.Logger
}

// NewCycleHandler creates the cycle handler.
func NewCycleHandler(cycles service.CycleAppService, log logger.Logger) *CycleHandler {
	return &CycleHandler{cycles: cycles, log: log}
}

// TriggerCycle runs one detection cycle for the request tenant. The body is
// optional; {"simulate_failure": true} runs the cycle as a failure drill.
// POST /api/v1/cycles
func (h *CycleHandler) TriggerCycle(c *gin.Context) {
	var req dto.TriggerCycleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ErrInvalidRequest(err.Error()))
			return
		}
	}

	result, err := h.cycles.TriggerCycle(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ReportPipelineEvent records an external ETL pipeline run.
// POST /api/v1/events/pipeline
func (h *CycleHandler) ReportPipelineEvent(c *gin.Context) {
	var req dto.ReportPipelineEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	event, err := h.cycles.ReportPipelineEvent(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusAccepted, event)
}
