package events

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

func cycleEvent(tenantID, cycleID string) models.StreamEvent {
	return models.NewStreamEvent(constants.EventTypeCycleStarted, tenantID, map[string]interface{}{
		"cycle_id": cycleID,
	})
}

func TestPublishDeliversToTenantScopedListener(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("demo")
	defer sub.Close()

	bus.Publish(context.Background(), cycleEvent("demo", "c-1"))

	ev := <-sub.C
	assert.Equal(t, constants.EventTypeCycleStarted, ev.Type)
	assert.Equal(t, "demo", ev.TenantID)
}

func TestPublishSkipsOtherTenants(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("demo")
	defer sub.Close()

	bus.Publish(context.Background(), cycleEvent("other", "c-1"))
	assert.Empty(t, sub.C)
}

func TestEmptyTenantSubscriptionReceivesEverything(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("")
	defer sub.Close()

	bus.Publish(context.Background(), cycleEvent("alpha", "c-1"))
	bus.Publish(context.Background(), cycleEvent("beta", "c-2"))

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, "alpha", first.TenantID)
	assert.Equal(t, "beta", second.TenantID)
}

func TestFullBufferDropsOldestEvent(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("demo")
	defer sub.Close()

	// One event past capacity: the oldest makes room for the newest.
	for i := 0; i <= constants.EventBufferPerListener; i++ {
		bus.Publish(context.Background(), cycleEvent("demo", fmt.Sprintf("c-%d", i)))
	}

	require.Len(t, sub.C, constants.EventBufferPerListener)
	first := <-sub.C
	assert.Equal(t, "c-1", first.Data["cycle_id"], "c-0 was dropped to make room")

	var last models.StreamEvent
	for len(sub.C) > 0 {
		last = <-sub.C
	}
	assert.Equal(t, fmt.Sprintf("c-%d", constants.EventBufferPerListener), last.Data["cycle_id"])
}

func TestCloseDetachesListener(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("demo")
	assert.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-sub.C
	assert.False(t, open, "the feed channel closes with the subscription")

	// Publishing after detach must not panic or deliver.
	bus.Publish(context.Background(), cycleEvent("demo", "c-1"))
}

func TestCloseTwiceIsSafe(t *testing.T) {
	bus := NewBus(logger.NewNoopLogger())
	sub := bus.Subscribe("demo")
	sub.Close()
	assert.NotPanics(t, func() { sub.Close() })
}
