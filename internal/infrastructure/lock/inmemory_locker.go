package lock

import (
	"context"
	"sync"
	"time"
)

// InMemoryLocker implements Locker with a process-local map. State is not
// shared across instances; use RedisLocker in distributed deployments.
type InMemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewInMemoryLocker creates an in-memory locker.
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

// TryAcquire takes the lock unless it is held and unexpired.
func (l *InMemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return false, nil, nil
	}

	l.held[key] = now.Add(ttl)
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return true, release, nil
}

var _ Locker = (*InMemoryLocker)(nil)
