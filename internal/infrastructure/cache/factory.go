package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Factory builds the Redis-backed coordination primitives.
// It dials Redis once and falls back to in-process implementations when
// Redis is unreachable, unless the configuration marks Redis as required.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	once    sync.Once
	client  *redis.Client
	dialErr error
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether in-process implementations may replace Redis.
// Default is the inverse of config.RedisConfig.Required.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: !cfg.Required,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the shared Redis client, dialling and pinging it on first use
func (f *Factory) Client(ctx context.Context) (*redis.Client, error) {
	f.once.Do(func() {
		client := redis.NewClient(&redis.Options{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			f.dialErr = fmt.Errorf("failed to connect to Redis at %s: %w", f.redisConfig.Addr(), err)
			return
		}
		f.client = client
	})
	return f.client, f.dialErr
}

// CreateIdempotencyStore returns a Redis store, or an in-memory store when fallback is allowed
func (f *Factory) CreateIdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	client, err := f.Client(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, ""), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"redelivered events may be processed twice across replicas",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

// CreateLocker returns a RedisLocker, or fallback when Redis is unreachable and fallback is allowed
func (f *Factory) CreateLocker(ctx context.Context, fallback Locker) (Locker, error) {
	client, err := f.Client(ctx)
	if err == nil {
		f.logger.Info("using Redis sync locks", zap.Duration("ttl", f.redisConfig.LockTTL))
		return NewRedisLocker(client,
			WithLockTTL(f.redisConfig.LockTTL),
			WithLockLogger(f.logger),
		), nil
	}
	if !f.allowInMemoryFallback || fallback == nil {
		return nil, fmt.Errorf("redis required for sync locks but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, sync locks are local to this process", zap.Error(err))
	return fallback, nil
}

// Ping checks Redis reachability for health reporting
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		if f.dialErr != nil {
			return f.dialErr
		}
		return fmt.Errorf("redis not connected")
	}
	return f.client.Ping(ctx).Err()
}

// Close closes the shared client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
