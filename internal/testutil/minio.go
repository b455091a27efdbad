package testutil

import (
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store/minio"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"testing"
)

const (
	minioAccessKey = "minioadmin"
	minioSecretKey = "minioadmin"
)

func MinIO(t *testing.T) minio.Config {
	t.Helper()

	ctx := context.Background()

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "minio/minio",
			Cmd:   []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioAccessKey,
				"MINIO_ROOT_PASSWORD": minioSecretKey,
			},
			WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
			ExposedPorts: []string{"9000/tcp"},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = minioContainer.Terminate(context.Background())
	})

	host, err := minioContainer.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := minioContainer.MappedPort(ctx, nat.Port("9000/tcp"))
	require.NoError(t, err)

	return minio.Config{
		Endpoint:     fmt.Sprintf("%s:%d", host, mappedPort.Int()),
		Bucket:       "test",
		Region:       "us-east-1",
		AccessKey:    minioAccessKey,
		SecretKey:    minioSecretKey,
		CreateBucket: true,
	}
}
