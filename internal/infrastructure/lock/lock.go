// Package lock provides the distributed mutex used to serialize exclusive
// menu syncs per tenant/branch/provider. A Redis implementation backs
// multi-instance deployments; an in-memory implementation backs tests and
// single-instance setups.
package lock

import (
	"context"
	"time"
)

// Locker acquires advisory locks identified by a string key.
type Locker interface {
	// TryAcquire attempts to take the lock without blocking. It returns
	// true and a release function when the lock was taken, false when it
	// is already held elsewhere.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, func(), error)
}
