package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dharsanguruparan/VidAI/internal/model"
)

func TestRedisBrokerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip integration in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr, cleanup := startRedis(ctx, t)
	defer cleanup()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	broker := NewRedisBroker(rdb, zerolog.Nop())

	events, stop, err := broker.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, broker.Publish(ctx, Event{SessionID: "s2", Progress: 1}))
	require.NoError(t, broker.Publish(ctx, Event{SessionID: "s1", Status: model.StatusActive, Progress: 100}))

	select {
	case ev := <-events:
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, model.StatusActive, ev.Status)
		assert.True(t, ev.Terminal())
	case <-time.After(10 * time.Second):
		t.Fatal("no event received")
	}

	stop()
	_, ok := <-events
	for ok {
		_, ok = <-events
	}
}

func startRedis(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skip integration: cannot start redis container: %v", err)
		return "", func() {}
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cleanup := func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(termCtx)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), cleanup
}
