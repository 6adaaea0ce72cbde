package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/repository"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

// ApprovalRepoImpl implements ApprovalRepository on GORM. Token consumption
// is a compare-and-set on the pending status so two concurrent decisions can
// never both win.
type ApprovalRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewApprovalRepository creates a GORM-backed approval token repository.
func NewApprovalRepository(db *gorm.DB, log logger.Logger) repository.ApprovalRepository {
	return &ApprovalRepoImpl{
		db:     db,
		logger: log,
	}
}

// Save persists a new pending token.
func (r *ApprovalRepoImpl) Save(ctx context.Context, token *models.ApprovalToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		r.logger.Error(ctx, "Failed to save approval token", err,
			logger.String("token_id", token.TokenID),
			logger.String("tenant_id", token.TenantID),
		)
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "Approval token issued",
		logger.String("token_id", token.TokenID),
		logger.String("tenant_id", token.TenantID),
		logger.String("incident_id", token.IncidentID),
		logger.String("action", token.Action),
		logger.Time("expires_at", token.ExpiresAt),
	)
	return nil
}

// FindByID retrieves a token within the tenant partition.
func (r *ApprovalRepoImpl) FindByID(ctx context.Context, tenantID, tokenID string) (*models.ApprovalToken, error) {
	var token models.ApprovalToken
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND token_id = ?", tenantID, tokenID).
		First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTokenInvalid(tokenID)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &token, nil
}

// ConsumePending writes the decision only while the row is still pending.
// A false return means some other decision got there first.
func (r *ApprovalRepoImpl) ConsumePending(ctx context.Context, token *models.ApprovalToken) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalToken{}).
		Where("tenant_id = ? AND token_id = ? AND status = ?",
			token.TenantID, token.TokenID, constants.ApprovalStatusPending).
		Updates(map[string]interface{}{
			"status":           token.Status,
			"decided_by":       token.DecidedBy,
			"decision_comment": token.DecisionComment,
			"decided_at":       token.DecidedAt,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to consume approval token", result.Error,
			logger.String("token_id", token.TokenID),
			logger.String("tenant_id", token.TenantID),
		)
		return false, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}

	consumed := result.RowsAffected > 0
	if consumed {
		r.logger.Info(ctx, "Approval token consumed",
			logger.String("token_id", token.TokenID),
			logger.String("tenant_id", token.TenantID),
			logger.String("status", string(token.Status)),
			logger.String("decided_by", token.DecidedBy),
		)
	}
	return consumed, nil
}

// ListPending returns the tenant's pending tokens, oldest first.
func (r *ApprovalRepoImpl) ListPending(ctx context.Context, tenantID string) ([]*models.ApprovalToken, error) {
	var tokens []*models.ApprovalToken
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, constants.ApprovalStatusPending).
		Order("requested_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return tokens, nil
}

// ExpireOlderThan sweeps pending tokens past their TTL into the expired state.
func (r *ApprovalRepoImpl) ExpireOlderThan(ctx context.Context, now time.Time) (int64, error) {
	decided := now.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalToken{}).
		Where("status = ? AND expires_at < ?", constants.ApprovalStatusPending, now).
		Updates(map[string]interface{}{
			"status":     constants.ApprovalStatusExpired,
			"decided_at": &decided,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Approval expiry sweep failed", result.Error)
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Info(ctx, "Expired approval tokens swept",
			logger.Int64("expired", result.RowsAffected),
		)
	}
	return result.RowsAffected, nil
}
