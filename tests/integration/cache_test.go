//go:build integration

package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/cache"
)

func TestRedisLocker_SerialisesKey(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client, cache.WithLockTTL(5*time.Second))
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "cmssync:product:prod_1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLocker_TokenOwnership(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client)
	ctx := context.Background()

	token, err := locker.TryLock(ctx, "k")
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrLockNotAcquired)

	assert.ErrorIs(t, locker.Unlock(ctx, "k", "someone-else"), cache.ErrLockNotHeld)
	require.NoError(t, locker.Unlock(ctx, "k", token))

	_, err = locker.TryLock(ctx, "k")
	assert.NoError(t, err)
}

func TestRedisLocker_LockHonoursContext(t *testing.T) {
	client := NewTestRedis(t)
	locker := cache.NewRedisLocker(client)

	unlock, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := NewTestRedis(t)
	store := cache.NewRedisIdempotencyStore(client, "cmssync:idem:")
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "h:evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "h:evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	seen, err := store.IsProcessed(ctx, "h:evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, store.Release(ctx, "h:evt-1"))
	seen, err = store.IsProcessed(ctx, "h:evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
