// internal/lock/lock.go
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyLocked is returned when a tenant's recalculation lock is held.
// Callers get the rejection synchronously and are responsible for retry and
// backoff; requests are never queued or silently ignored.
var ErrAlreadyLocked = errors.New("recalculation already in progress for tenant")

// TenantLocker provides per-tenant mutual exclusion for recomputation.
// Different tenants are fully independent and lock independently.
type TenantLocker interface {
	// Acquire takes the tenant's exclusive lock, returning a release function
	// that must run on both success and failure paths. Returns
	// ErrAlreadyLocked without blocking when the lock is held.
	Acquire(ctx context.Context, tenantID string) (release func(), err error)
}

// MemoryLocker is the in-process lock registry used when the engine runs as a
// single replica.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, tenantID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[tenantID]; taken {
		return nil, ErrAlreadyLocked
	}
	l.held[tenantID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, tenantID)
			l.mu.Unlock()
		})
	}
	return release, nil
}
