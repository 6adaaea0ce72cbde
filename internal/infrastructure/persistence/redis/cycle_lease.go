package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// leaseTTL caps how long a crashed cycle can block its tenant slot.
const leaseTTL = 15 * time.Minute

// CycleLease enforces at most one active cycle per tenant across replicas
// using SET NX with a safety TTL.
type CycleLease struct {
	client *redis.Client
	logger logger.Logger
}

// NewCycleLease creates a Redis-backed cycle lease.
func NewCycleLease(client *redis.Client, log logger.Logger) service.CycleLease {
	return &CycleLease{
		client: client,
		logger: log,
	}
}

func leaseKey(tenantID string) string {
	return constants.CacheKeyPrefixCycleLease + tenantID
}

// TryAcquire returns false when the tenant's cycle slot is busy.
func (l *CycleLease) TryAcquire(ctx context.Context, tenantID string) (bool, error) {
	acquired, err := l.client.SetNX(ctx, leaseKey(tenantID), time.Now().UTC().Format(time.RFC3339), leaseTTL).Result()
	if err != nil {
		l.logger.Error(ctx, "Cycle lease acquire failed", err, logger.String("tenant_id", tenantID))
		return false, fmt.Errorf("cycle lease: %w", err)
	}
	return acquired, nil
}

// Release frees the tenant's cycle slot.
func (l *CycleLease) Release(ctx context.Context, tenantID string) error {
	if err := l.client.Del(ctx, leaseKey(tenantID)).Err(); err != nil {
		l.logger.Error(ctx, "Cycle lease release failed", err, logger.String("tenant_id", tenantID))
		return fmt.Errorf("cycle lease: %w", err)
	}
	return nil
}
