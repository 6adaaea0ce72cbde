// Package events implements lifecycle event distribution: an in-process bus
// feeding WebSocket listeners and an optional Kafka mirror.
package events

import (
	"context"
	"sync"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// Subscription is one listener's bounded event feed. When the buffer is full
// the oldest event is dropped; the pipeline never blocks on a slow listener.
type Subscription struct {
	C      chan models.StreamEvent
	tenant string
	bus    *Bus
}

// Close detaches the listener from the bus.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus is the in-process event fan-out.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger logger.Logger
}

// NewBus creates the in-process event bus.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: log.WithComponent("events.bus"),
	}
}

var _ service.EventPublisher = (*Bus)(nil)

// Subscribe registers a listener. An empty tenantID receives every tenant's
// events; otherwise delivery is tenant-scoped.
func (b *Bus) Subscribe(tenantID string) *Subscription {
	sub := &Subscription{
		C:      make(chan models.StreamEvent, constants.EventBufferPerListener),
		tenant: tenantID,
		bus:    b,
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.C)
	}
	b.mu.Unlock()
}

// Publish fans the event out to matching listeners without blocking. A full
// listener buffer drops its oldest event to make room.
func (b *Bus) Publish(ctx context.Context, event models.StreamEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.tenant != "" && sub.tenant != event.TenantID {
			continue
		}
		select {
		case sub.C <- event:
		default:
			// Drop the oldest queued event, then retry once. If another
			// producer raced us into the slot, the event is dropped instead
			// of blocking the pipeline.
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- event:
			default:
				b.logger.Debug(ctx, "Event dropped for slow listener",
					logger.String("tenant_id", event.TenantID),
					logger.String("type", string(event.Type)),
				)
			}
		}
	}
}

// SubscriberCount reports the number of attached listeners.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
