package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/logger"
)

// KafkaMirror copies lifecycle events onto a Kafka topic for downstream
// consumers. Write failures are logged and swallowed: the broker is a mirror,
// not a dependency of the pipeline.
type KafkaMirror struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaMirror creates the Kafka event mirror.
func NewKafkaMirror(cfg *config.KafkaConfig, log logger.Logger) *KafkaMirror {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
	}
	return &KafkaMirror{
		writer: writer,
		logger: log.WithComponent("events.kafka"),
	}
}

var _ service.EventPublisher = (*KafkaMirror)(nil)

// Publish writes the event to the topic keyed by tenant so per-tenant order
// is preserved within a partition.
func (m *KafkaMirror) Publish(ctx context.Context, event models.StreamEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		m.logger.Error(ctx, "Failed to marshal stream event", err)
		return
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: value,
	})
	if err != nil {
		m.logger.Warn(ctx, "Failed to mirror event to Kafka",
			logger.String("tenant_id", event.TenantID),
			logger.String("type", string(event.Type)),
			logger.String("error", err.Error()),
		)
	}
}

// Close flushes and closes the writer.
func (m *KafkaMirror) Close() error {
	return m.writer.Close()
}

// Fanout publishes to multiple publishers in order.
type Fanout []service.EventPublisher

var _ service.EventPublisher = (Fanout)(nil)

// Publish delivers the event to every publisher.
func (f Fanout) Publish(ctx context.Context, event models.StreamEvent) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}
