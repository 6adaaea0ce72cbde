package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// TenantHandler manages tenant workspaces.
type TenantHandler struct {
	tenants service.TenantAppService
	log     logger.Logger
}

// NewTenantHandler creates the tenant handler.
func NewTenantHandler(tenants service.TenantAppService, log logger.Logger) *TenantHandler {
	return &TenantHandler{tenants: tenants, log: log}
}

// Create provisions a new tenant workspace.
// POST /api/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.tenants.CreateTenant(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp)
}

// Get retrieves a tenant with its configuration.
// GET /api/v1/tenants/:tenant_id
func (h *TenantHandler) Get(c *gin.Context) {
	resp, err := h.tenants.GetTenant(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// List returns a paginated tenant listing.
// GET /api/v1/tenants
func (h *TenantHandler) List(c *gin.Context) {
	var req dto.ListTenantsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.tenants.ListTenants(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// UpdateConfig patches the tenant's pipeline configuration.
// PUT /api/v1/tenants/:tenant_id/config
func (h *TenantHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateTenantConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.tenants.UpdateConfig(c.Request.Context(), c.Param("tenant_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// UpdateStatus changes the tenant lifecycle status.
// PUT /api/v1/tenants/:tenant_id/status
func (h *TenantHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateTenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	if err := h.tenants.UpdateStatus(c.Request.Context(), c.Param("tenant_id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"status": req.Status})
}

// Delete soft-deletes a tenant workspace.
// DELETE /api/v1/tenants/:tenant_id
func (h *TenantHandler) Delete(c *gin.Context) {
	if err := h.tenants.DeleteTenant(c.Request.Context(), c.Param("tenant_id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}
