package testutil

import (
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store/redis"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"testing"
)

func Redis(t *testing.T) redis.Config {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			WaitingFor:   wait.ForLog("Ready to accept connections"),
			ExposedPorts: []string{"6379/tcp"},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = redisContainer.Terminate(context.Background())
	})

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := redisContainer.MappedPort(ctx, nat.Port("6379/tcp"))
	require.NoError(t, err)

	return redis.Config{
		Addr: fmt.Sprintf("%s:%d", host, mappedPort.Int()),
	}
}
