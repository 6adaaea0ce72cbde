// Package service implements the application-layer use cases exposed by the
// HTTP interface. Services orchestrate domain repositories and pipeline
// components; they never reach into infrastructure directly.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/sentra/internal/application/dto"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// TenantAppService manages tenant workspaces and their pipeline configuration.
type TenantAppService interface {
	// CreateTenant provisions a new workspace with default thresholds.
	CreateTenant(ctx context.Context, req *dto.CreateTenantRequest) (*dto.TenantResponse, error)

	// GetTenant retrieves a tenant with its configuration.
	GetTenant(ctx context.Context, tenantID string) (*dto.TenantResponse, error)

	// ListTenants retrieves a paginated tenant listing.
	ListTenants(ctx context.Context, req *dto.ListTenantsRequest) (*dto.ListTenantsResponse, error)

	// UpdateConfig patches the tenant's pipeline configuration.
	UpdateConfig(ctx context.Context, tenantID string, req *dto.UpdateTenantConfigRequest) (*dto.TenantResponse, error)

	// UpdateStatus changes the tenant lifecycle status.
	UpdateStatus(ctx context.Context, tenantID, status string) error

	// DeleteTenant soft-deletes a tenant workspace.
	DeleteTenant(ctx context.Context, tenantID string) error
}

type tenantAppServiceImpl struct {
	tenantRepo repository.TenantRepository
	auditRepo  repository.AuditRepository
	logger     logger.Logger
}

// NewTenantAppService creates the tenant application service.
func NewTenantAppService(tenantRepo repository.TenantRepository, auditRepo repository.AuditRepository, log logger.Logger) TenantAppService {
	return &tenantAppServiceImpl{
		tenantRepo: tenantRepo,
		auditRepo:  auditRepo,
		logger:     log.WithComponent("tenant_service"),
	}
}

func (s *tenantAppServiceImpl) CreateTenant(ctx context.Context, req *dto.CreateTenantRequest) (*dto.TenantResponse, error) {
	if req.Name == "" {
		return nil, errors.ErrInvalidRequest("name is required")
	}
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = fmt.Sprintf("tenant-%d", time.Now().Unix())
	}

	exists, err := s.tenantRepo.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.ErrInvalidRequest(fmt.Sprintf("tenant %s already exists", tenantID))
	}

	tenant := models.NewTenant(tenantID, req.Name)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error(ctx, "Failed to create tenant", err, logger.String("tenant_id", tenantID))
		return nil, err
	}

	s.logger.Info(ctx, "Tenant created",
		logger.String("tenant_id", tenantID),
		logger.String("name", req.Name),
	)
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "tenant_create", req.Name)
	return dto.TenantFromModel(tenant), nil
}

func (s *tenantAppServiceImpl) GetTenant(ctx context.Context, tenantID string) (*dto.TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return dto.TenantFromModel(tenant), nil
}

func (s *tenantAppServiceImpl) ListTenants(ctx context.Context, req *dto.ListTenantsRequest) (*dto.ListTenantsResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	tenants, total, err := s.tenantRepo.FindAll(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	infos := make([]dto.TenantInfo, 0, len(tenants))
	for _, t := range tenants {
		infos = append(infos, dto.TenantInfo{
			TenantID:  t.TenantID,
			Name:      t.TenantName,
			Status:    string(t.Status),
			CreatedAt: t.CreatedAt,
		})
	}
	return &dto.ListTenantsResponse{Tenants: infos, Total: total}, nil
}

func (s *tenantAppServiceImpl) UpdateConfig(ctx context.Context, tenantID string, req *dto.UpdateTenantConfigRequest) (*dto.TenantResponse, error) {
	if err := validateConfigPatch(req); err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.ConfidenceThreshold != nil {
		tenant.Config.ConfidenceThreshold = *req.ConfidenceThreshold
	}
	if req.AlertThreshold != nil {
		tenant.Config.AlertThreshold = *req.AlertThreshold
	}
	if req.CooldownSeconds != nil {
		tenant.Config.CooldownWindow = time.Duration(*req.CooldownSeconds) * time.Second
	}
	if req.Channels != nil {
		tenant.Config.Channels = req.Channels
	}
	if req.SlackWebhookURL != nil {
		tenant.Config.SlackWebhookURL = *req.SlackWebhookURL
	}
	if req.MonitoredTables != nil {
		tenant.Config.MonitoredTables = req.MonitoredTables
	}
	if req.Tables != nil {
		tenant.Config.Tables = req.Tables
	}
	tenant.UpdatedAt = time.Now().UTC()

	if err := s.tenantRepo.UpdateConfig(ctx, tenant); err != nil {
		s.logger.Error(ctx, "Failed to update tenant config", err, logger.String("tenant_id", tenantID))
		return nil, err
	}

	s.logger.Info(ctx, "Tenant config updated", logger.String("tenant_id", tenantID))
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "tenant_config_update", "pipeline configuration patched")
	return dto.TenantFromModel(tenant), nil
}

func (s *tenantAppServiceImpl) UpdateStatus(ctx context.Context, tenantID, status string) error {
	valid := map[string]bool{
		string(constants.TenantStatusActive):    true,
		string(constants.TenantStatusSuspended): true,
		string(constants.TenantStatusDeleted):   true,
	}
	if !valid[status] {
		return errors.ErrInvalidRequest(fmt.Sprintf("invalid status: %s", status))
	}

	if err := s.tenantRepo.UpdateStatus(ctx, tenantID, constants.TenantStatus(status)); err != nil {
		return err
	}
	s.logger.Info(ctx, "Tenant status updated",
		logger.String("tenant_id", tenantID),
		logger.String("status", status),
	)
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "tenant_status_update", status)
	return nil
}

func (s *tenantAppServiceImpl) DeleteTenant(ctx context.Context, tenantID string) error {
	if err := s.tenantRepo.Delete(ctx, tenantID, false); err != nil {
		return err
	}
	s.logger.Info(ctx, "Tenant deleted", logger.String("tenant_id", tenantID))
	recordAudit(ctx, s.auditRepo, s.logger, tenantID, "admin", "tenant_delete", "")
	return nil
}

func validateConfigPatch(req *dto.UpdateTenantConfigRequest) error {
	if req.ConfidenceThreshold != nil && (*req.ConfidenceThreshold < 0 || *req.ConfidenceThreshold > 100) {
		return errors.ErrInvalidRequest("confidence_threshold must be in [0,100]")
	}
	if req.AlertThreshold != nil && (*req.AlertThreshold < 0 || *req.AlertThreshold > 100) {
		return errors.ErrInvalidRequest("alert_threshold must be in [0,100]")
	}
	if req.CooldownSeconds != nil && *req.CooldownSeconds < 0 {
		return errors.ErrInvalidRequest("cooldown_seconds must be non-negative")
	}
	for _, ch := range req.Channels {
		if ch != "console" && ch != "slack" {
			return errors.ErrInvalidRequest(fmt.Sprintf("unknown channel: %s", ch))
		}
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
