package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// SlackChannel posts notifications to an incoming-webhook URL. A tenant-level
// webhook, when configured, overrides the service default at send time.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	logger     logger.Logger
}

// NewSlackChannel creates the Slack notification channel.
func NewSlackChannel(webhookURL string, log logger.Logger) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     log.WithComponent("notify.slack"),
	}
}

var _ service.NotificationChannel = (*SlackChannel)(nil)

func (s *SlackChannel) Name() string {
	return "slack"
}

type slackPayload struct {
	Text string `json:"text"`
}

func levelEmoji(level constants.AlertLevel) string {
	switch level {
	case constants.AlertLevelCritical:
		return ":rotating_light:"
	case constants.AlertLevelWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

// Send posts the notification. Non-2xx responses are errors so the escalator
// retries with backoff.
func (s *SlackChannel) Send(ctx context.Context, n service.Notification) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	payload := slackPayload{
		Text: fmt.Sprintf("%s *[%s]* %s\nincident: `%s` tenant: `%s`\n%s",
			levelEmoji(n.Level), n.Level, n.Title, n.IncidentID, n.TenantID, n.Body),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug(ctx, "Slack notification delivered",
		logger.String("tenant_id", n.TenantID),
		logger.String("incident_id", n.IncidentID),
	)
	return nil
}
