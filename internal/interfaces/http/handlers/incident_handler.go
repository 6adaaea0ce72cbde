package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// IncidentHandler exposes the tenant's incident history.
type IncidentHandler struct {
	incidents service.IncidentAppService
	log       logger.Logger
}

// NewIncidentHandler creates the incident handler.
func NewIncidentHandler(incidents service.IncidentAppService, log logger.Logger) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, log: log}
}

// List returns the tenant's incidents, filtered and paged.
// GET /api/v1/incidents
func (h *IncidentHandler) List(c *gin.Context) {
	var req dto.ListIncidentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	resp, err := h.incidents.List(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Get returns one full incident record.
// GET /api/v1/incidents/:incident_id
func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.incidents.Get(c.Request.Context(), tenantID(c), c.Param("incident_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, incident)
}

// Archive marks an incident resolved.
// POST /api/v1/incidents/:incident_id/archive
func (h *IncidentHandler) Archive(c *gin.Context) {
	if err := h.incidents.Archive(c.Request.Context(), tenantID(c), c.Param("incident_id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"archived": true})
}

// Delete hard-deletes an incident.
// DELETE /api/v1/incidents/:incident_id
func (h *IncidentHandler) Delete(c *gin.Context) {
	if err := h.incidents.Delete(c.Request.Context(), tenantID(c), c.Param("incident_id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

// BulkArchive archives many incidents at once.
// POST /api/v1/incidents/bulk/archive
func (h *IncidentHandler) BulkArchive(c *gin.Context) {
	var req dto.BulkIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.incidents.BulkArchive(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// BulkDelete deletes many incidents at once.
// POST /api/v1/incidents/bulk/delete
func (h *IncidentHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.incidents.BulkDelete(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Stats returns the tenant's incident counts and health score.
// GET /api/v1/incidents/stats
func (h *IncidentHandler) Stats(c *gin.Context) {
	stats, err := h.incidents.Stats(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

// MTTR returns the mean-time-to-resolve aggregation.
// GET /api/v1/incidents/mttr?window_days=7
func (h *IncidentHandler) MTTR(c *gin.Context) {
	windowDays, _ := strconv.Atoi(c.DefaultQuery("window_days", "0"))
	resp, err := h.incidents.MTTR(c.Request.Context(), tenantID(c), windowDays)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Trends returns incident counts bucketed per day and type.
// GET /api/v1/incidents/trends?window_days=7
func (h *IncidentHandler) Trends(c *gin.Context) {
	windowDays, _ := strconv.Atoi(c.DefaultQuery("window_days", "0"))
	trends, err := h.incidents.Trends(c.Request.Context(), tenantID(c), windowDays)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, trends)
}

// Dashboard returns the tenant overview.
// GET /api/v1/dashboard
func (h *IncidentHandler) Dashboard(c *gin.Context) {
	resp, err := h.incidents.Dashboard(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}
