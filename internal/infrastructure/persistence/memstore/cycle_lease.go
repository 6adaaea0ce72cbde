package memstore

import (
	"context"
	"sync"

	"github.com/turtacn/sentra/internal/domain/service"
)

// CycleLease enforces at most one active cycle per tenant within the process.
type CycleLease struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewCycleLease creates an in-process cycle lease.
func NewCycleLease() *CycleLease {
	return &CycleLease{active: make(map[string]struct{})}
}

var _ service.CycleLease = (*CycleLease)(nil)

// TryAcquire returns false when the tenant's cycle slot is busy.
func (l *CycleLease) TryAcquire(_ context.Context, tenantID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[tenantID]; busy {
		return false, nil
	}
	l.active[tenantID] = struct{}{}
	return true, nil
}

// Release frees the tenant's cycle slot. Releasing an unheld slot is a no-op.
func (l *CycleLease) Release(_ context.Context, tenantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, tenantID)
	return nil
}
