//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestRedis returns a client on the shared Redis container with an empty keyspace
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	containersMu.Lock()
	if sharedRedis == nil {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor: wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			containersMu.Unlock()
			require.NoError(t, err, "Failed to start Redis container")
		}
		addr, err := container.Endpoint(ctx, "")
		if err != nil {
			containersMu.Unlock()
			require.NoError(t, err, "Failed to get Redis endpoint")
		}
		sharedRedis = container
		sharedRedisAddr = addr
	}
	addr := sharedRedisAddr
	containersMu.Unlock()

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
