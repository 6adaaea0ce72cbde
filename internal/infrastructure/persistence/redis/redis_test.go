package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

func testClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCooldownAcquireSetsWindowTTL(t *testing.T) {
	mr, client := testClient(t)
	store := NewCooldownStore(client, logger.NewNoopLogger())

	ok, err := store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	key := cooldownKey("demo", constants.IncidentTypeDataIntegrityFailure)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestCooldownSecondAcquireSuppressed(t *testing.T) {
	_, client := testClient(t)
	store := NewCooldownStore(client, logger.NewNoopLogger())

	ok, err := store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCooldownReopensAfterExpiry(t *testing.T) {
	mr, client := testClient(t)
	store := NewCooldownStore(client, logger.NewNoopLogger())

	ok, err := store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(10*time.Minute + time.Second)

	ok, err = store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownScopedPerTenantAndType(t *testing.T) {
	_, client := testClient(t)
	store := NewCooldownStore(client, logger.NewNoopLogger())

	ok, err := store.Acquire(context.Background(), "demo", constants.IncidentTypeDataIntegrityFailure, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Acquire(context.Background(), "other", constants.IncidentTypeDataIntegrityFailure, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(context.Background(), "demo", constants.IncidentTypeFreshnessViolation, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCycleLeaseMutualExclusion(t *testing.T) {
	_, client := testClient(t)
	lease := NewCycleLease(client, logger.NewNoopLogger())

	ok, err := lease.TryAcquire(context.Background(), "demo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.TryAcquire(context.Background(), "demo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lease.Release(context.Background(), "demo"))

	ok, err = lease.TryAcquire(context.Background(), "demo")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCycleLeaseSafetyTTLUnblocksCrashedCycle(t *testing.T) {
	mr, client := testClient(t)
	lease := NewCycleLease(client, logger.NewNoopLogger())

	ok, err := lease.TryAcquire(context.Background(), "demo")
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed replica never calls Release; the TTL frees the slot.
	mr.FastForward(leaseTTL + time.Second)

	ok, err = lease.TryAcquire(context.Background(), "demo")
	require.NoError(t, err)
	assert.True(t, ok)
}
