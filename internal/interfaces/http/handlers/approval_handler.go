package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/application/service"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// ApprovalHandler lists and decides remediation approval tokens.
type ApprovalHandler struct {
	approvals service.ApprovalAppService
	log       logger.Logger
}

// NewApprovalHandler creates the approval handler.
func NewApprovalHandler(approvals service.ApprovalAppService, log logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, log: log}
}

// ListPending returns the tenant's pending approval tokens.
// GET /api/v1/approvals
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	resp, err := h.approvals.ListPending(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Get retrieves one approval token.
// GET /api/v1/approvals/:token_id
func (h *ApprovalHandler) Get(c *gin.Context) {
	resp, err := h.approvals.Get(c.Request.Context(), tenantID(c), c.Param("token_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// Decide approves or rejects a pending token. Approval executes the playbook.
// POST /api/v1/approvals/:token_id/decide
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var req dto.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}
	resp, err := h.approvals.Decide(c.Request.Context(), tenantID(c), c.Param("token_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}
