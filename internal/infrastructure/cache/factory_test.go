package cache

import (
	"context"
	"testing"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1, LockTTL: time.Minute}

type stubLocker struct{}

func (stubLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func TestFactory_FallsBackWhenRedisUnreachable(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(unreachableRedis, WithLogger(zap.NewNop()))
	t.Cleanup(func() { _ = f.Close() })

	store, err := f.CreateIdempotencyStore(ctx)
	require.NoError(t, err)
	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok, "expected in-memory store, got %T", store)
	t.Cleanup(func() { _ = store.Close() })

	fallback := stubLocker{}
	locker, err := f.CreateLocker(ctx, fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, locker)

	assert.Error(t, f.Ping(ctx))
}

func TestFactory_RequiredRedisFails(t *testing.T) {
	ctx := context.Background()
	cfg := unreachableRedis
	cfg.Required = true
	f := NewFactory(cfg)

	_, err := f.CreateIdempotencyStore(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required")

	_, err = f.CreateLocker(ctx, stubLocker{})
	require.Error(t, err)
}

func TestFactory_FallbackOptionOverridesRequired(t *testing.T) {
	cfg := unreachableRedis
	cfg.Required = true
	f := NewFactory(cfg, WithInMemoryFallback(true))

	locker, err := f.CreateLocker(context.Background(), stubLocker{})
	require.NoError(t, err)
	assert.IsType(t, stubLocker{}, locker)
}

func TestFactory_CloseWithoutClient(t *testing.T) {
	f := NewFactory(unreachableRedis)
	assert.NoError(t, f.Close())
	assert.Error(t, f.Ping(context.Background()))
}
