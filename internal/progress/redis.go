package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "vidai:progress:"

// Channel returns the pub/sub channel for a session.
func Channel(sessionID string) string { return channelPrefix + sessionID }

// RedisBroker publishes and subscribes through Redis pub/sub so the worker
// and API processes can run apart.
type RedisBroker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(rdb *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log.With().Str("component", "progress-redis").Logger()}
}

// Publish sends ev on the session channel.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

// Subscribe listens on the session channel. It returns once Redis has
// confirmed the subscription, so events published afterwards are not lost.
func (b *RedisBroker) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	sub := b.rdb.Subscribe(ctx, Channel(sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe progress: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, buffer)
	msgs := sub.Channel()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed progress event")
					continue
				}
				offer(out, ev)
			}
		}
	}()
	return out, cancel, nil
}
