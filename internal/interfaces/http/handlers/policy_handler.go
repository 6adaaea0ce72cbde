package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// PolicyHandler manages the tenant's remediation policies.
type PolicyHandler struct {
	policies service.PolicyAppService
	log      logger.Logger
}

// NewPolicyHandler creates the policy handler.
func NewPolicyHandler(policies service.PolicyAppService, log logger.Logger) *PolicyHandler {
	return &PolicyHandler{policies: policies, log: log}
}

// Upsert creates or replaces a policy.
// PUT /api/v1/policies
func (h *PolicyHandler) Upsert(c *gin.Context) {
	var req dto.UpsertPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.policies.Upsert(c.Request.Context(), tenantID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Get retrieves one policy.
// GET /api/v1/policies/:policy_id
func (h *PolicyHandler) Get(c *gin.Context) {
	resp, err := h.policies.Get(c.Request.Context(), tenantID(c), c.Param("policy_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// List returns every policy of the tenant.
// GET /api/v1/policies
func (h *PolicyHandler) List(c *gin.Context) {
	resp, err := h.policies.List(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Delete removes a policy.
// DELETE /api/v1/policies/:policy_id
func (h *PolicyHandler) Delete(c *gin.Context) {
	if err := h.policies.Delete(c.Request.Context(), tenantID(c), c.Param("policy_id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}
