package repository

import (
	"context"
	"time"

	"github.com/turtacn/sentra/internal/domain/models"
)

// ApprovalRepository stores approval tokens. Consumption must be atomic so a
// token can never authorize twice under concurrent decisions.
type ApprovalRepository interface {
	// Save persists a new pending token.
	Save(ctx context.Context, token *models.ApprovalToken) error

	// FindByID retrieves a token.
	FindByID(ctx context.Context, tenantID, tokenID string) (*models.ApprovalToken, error)

	// ConsumePending transitions a token out of pending atomically. The
	// update applies only while the row is still pending; a false return
	// means the token was already consumed.
	ConsumePending(ctx context.Context, token *models.ApprovalToken) (bool, error)

	// ListPending returns the tenant's pending tokens.
	ListPending(ctx context.Context, tenantID string) ([]*models.ApprovalToken, error)

	// ExpireOlderThan marks pending tokens past their TTL as expired,
	// returning the number swept.
	ExpireOlderThan(ctx context.Context, now time.Time) (int64, error)
}
