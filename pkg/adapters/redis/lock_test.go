package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/elicit/pkg/adapters/redis"
)

func TestLocker_AcquireAndRelease(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	locker := redis.NewLocker(client, "elicit:")

	unlock, err := locker.Lock(ctx, "session-1", time.Minute)
	require.NoError(t, err)

	// Second acquisition blocks until the context gives up.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "session-1", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)

	// After release the lock is free again.
	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "session-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_IndependentKeys(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	locker := redis.NewLocker(client, "elicit:")

	unlockA, err := locker.Lock(ctx, "session-a", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlockA(ctx) }()

	// A different session is not blocked.
	unlockB, err := locker.Lock(ctx, "session-b", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))
}
