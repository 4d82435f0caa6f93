package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidAI/internal/model"
)

var (
	_ Publisher  = (*Hub)(nil)
	_ Subscriber = (*Hub)(nil)
	_ Publisher  = (*RedisBroker)(nil)
	_ Subscriber = (*RedisBroker)(nil)
)

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	a, stopA, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer stopA()
	b, stopB, err := hub.Subscribe(ctx, "s2")
	require.NoError(t, err)
	defer stopB()

	require.NoError(t, hub.Publish(ctx, Event{SessionID: "s1", Status: model.StatusProcessing, Progress: 5}))

	select {
	case ev := <-a:
		assert.Equal(t, 5.0, ev.Progress)
	case <-time.After(time.Second):
		t.Fatal("expected event for s1")
	}
	select {
	case ev := <-b:
		t.Fatalf("unexpected event for s2: %+v", ev)
	default:
	}
}

func TestHubSlowReaderKeepsLatest(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	ch, stop, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer stop()

	for i := 0; i <= 50; i++ {
		require.NoError(t, hub.Publish(ctx, Event{SessionID: "s1", Progress: float64(i)}))
	}

	var last Event
	for i := 0; i < buffer; i++ {
		last = <-ch
	}
	assert.Equal(t, 50.0, last.Progress)
}

func TestHubSubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	ch, stop, err := hub.Subscribe(ctx, "s1")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	stop()
	require.NoError(t, hub.Publish(context.Background(), Event{SessionID: "s1"}))
}

func TestEventTerminal(t *testing.T) {
	assert.False(t, Event{Status: model.StatusProcessing}.Terminal())
	assert.True(t, Event{Status: model.StatusFailed}.Terminal())
}
