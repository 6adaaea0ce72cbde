// Package redis backs the escalation cooldown store and per-tenant cycle
// leases with Redis so suppression and mutual exclusion survive restarts and
// hold across replicas. When no Redis address is configured the service uses
// the in-process fallbacks from the memstore package instead.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/pkg/logger"
)

// Connection manages the Redis client lifecycle.
type Connection struct {
	client *redis.Client
	logger logger.Logger
}

// NewConnection dials Redis and validates connectivity.
func NewConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*Connection, error) {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Error(ctx, "Redis ping failed", err, logger.String("addr", cfg.Address))
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info(ctx, "Redis connection established",
		logger.String("addr", cfg.Address),
		logger.Int("db", cfg.DB),
	)
	return &Connection{client: client, logger: log}, nil
}

// Client returns the underlying Redis client.
func (c *Connection) Client() *redis.Client {
	return c.client
}

// Ping checks connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// HealthCheck reports connectivity and pool statistics.
func (c *Connection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	health := map[string]interface{}{
		"connected":  err == nil,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		health["error"] = err.Error()
		return health, err
	}

	stats := c.client.PoolStats()
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	health["pool_timeouts"] = stats.Timeouts
	return health, nil
}

// Close releases the client.
func (c *Connection) Close() error {
	c.logger.Info(context.Background(), "Closing Redis connection")
	return c.client.Close()
}
