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

// CooldownStore suppresses repeat notifications per (tenant, incident type)
// using SET NX with the window as TTL. The first caller inside a window wins;
// everyone else is told to suppress.
type CooldownStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewCooldownStore creates a Redis-backed cooldown store.
func NewCooldownStore(client *redis.Client, log logger.Logger) service.CooldownStore {
	return &CooldownStore{
		client: client,
		logger: log,
	}
}

func cooldownKey(tenantID string, incidentType constants.IncidentType) string {
	return fmt.Sprintf("%s%s:%s", constants.CacheKeyPrefixCooldown, tenantID, incidentType)
}

// Acquire returns true when no cooldown is active and starts a new window.
func (s *CooldownStore) Acquire(ctx context.Context, tenantID string, incidentType constants.IncidentType, window time.Duration) (bool, error) {
	if window <= 0 {
		window = constants.DefaultCooldownWindow
	}

	key := cooldownKey(tenantID, incidentType)
	acquired, err := s.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		s.logger.Error(ctx, "Cooldown acquire failed", err,
			logger.String("tenant_id", tenantID),
			logger.String("incident_type", string(incidentType)),
		)
		return false, fmt.Errorf("cooldown store: %w", err)
	}

	if !acquired {
		s.logger.Debug(ctx, "Notification cooldown active",
			logger.String("tenant_id", tenantID),
			logger.String("incident_type", string(incidentType)),
		)
	}
	return acquired, nil
}
