//go:build integration
// +build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Decentr-net/animenexus/internal/cache"
)

var (
	ctx    = context.Background()
	client *redis.Client
)

func TestMain(m *testing.M) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "6379")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, port.Int())})

	code := m.Run()

	client.Close()
	c.Terminate(ctx)
	os.Exit(code)
}

func TestRedis(t *testing.T) {
	c := New(client)

	require.NoError(t, c.Ping(ctx))

	_, err := c.Get(ctx, "key")
	require.Equal(t, cache.ErrMiss, err)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Second))

	v, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	ttl, err := client.TTL(ctx, keyPrefix+"key").Result()
	require.NoError(t, err)
	require.True(t, ttl > 0 && ttl <= time.Second)

	require.NoError(t, c.Delete(ctx, "key"))

	_, err = c.Get(ctx, "key")
	require.Equal(t, cache.ErrMiss, err)
}
