package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates session access across replicas. The
// in-process session manager already serializes steps within one
// process; a DistributedLocker extends that guarantee to multi-instance
// deployments sharing one store.
type DistributedLocker interface {
	// Lock acquires a distributed lock for the given key (the session
	// ID). It blocks until acquired, the context is canceled, or the
	// TTL expires (implementation specific). The returned UnlockFunc
	// MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
