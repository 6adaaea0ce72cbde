// Package notify implements the escalation notification channels.
package notify

import (
	"context"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// ConsoleChannel writes notifications to the structured log. It is the
// default channel and always succeeds.
type ConsoleChannel struct {
	logger logger.Logger
}

// NewConsoleChannel creates the console notification channel.
func NewConsoleChannel(log logger.Logger) *ConsoleChannel {
	return &ConsoleChannel{logger: log.WithComponent("notify.console")}
}

var _ service.NotificationChannel = (*ConsoleChannel)(nil)

func (c *ConsoleChannel) Name() string {
	return "console"
}

func (c *ConsoleChannel) Send(ctx context.Context, n service.Notification) error {
	c.logger.Info(ctx, "ALERT "+n.Title,
		logger.String("tenant_id", n.TenantID),
		logger.String("level", string(n.Level)),
		logger.String("incident_id", n.IncidentID),
		logger.String("body", n.Body),
	)
	return nil
}
