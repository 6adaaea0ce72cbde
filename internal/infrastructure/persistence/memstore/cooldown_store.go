// Package memstore provides in-process fallbacks for the Redis-backed stores.
// They hold the same contracts within a single process and are the default in
// development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
)

// CooldownStore tracks notification suppression windows in memory.
type CooldownStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> window expiry

	// now is swappable for tests.
	now func() time.Time
}

// NewCooldownStore creates an in-process cooldown store.
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

var _ service.CooldownStore = (*CooldownStore)(nil)

// Acquire returns true when no cooldown is active and starts a new window.
func (s *CooldownStore) Acquire(_ context.Context, tenantID string, incidentType constants.IncidentType, window time.Duration) (bool, error) {
	if window <= 0 {
		window = constants.DefaultCooldownWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + ":" + string(incidentType)
	now := s.now()
	if expiry, ok := s.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.entries[key] = now.Add(window)
	return true, nil
}

// SetClock overrides the time source. Test hook.
func (s *CooldownStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
