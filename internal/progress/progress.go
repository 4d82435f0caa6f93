// Package progress fans activation progress out to clients watching a
// session. The worker publishes; the HTTP server subscribes on behalf of
// server-sent-event streams.
package progress

import (
	"context"

	"github.com/dharsanguruparan/VidAI/internal/model"
)

// Event is one progress update for a session.
type Event struct {
	SessionID string              `json:"sessionId"`
	Status    model.SessionStatus `json:"status"`
	Progress  float64             `json:"progress"`
	ErrorKind string              `json:"errorKind,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// Terminal reports whether this is the last event of a session.
func (e Event) Terminal() bool { return e.Status.Terminal() }

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber streams events for one session. The returned channel is closed
// when ctx ends or the returned stop function is called.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error)
}

// buffer is small on purpose: consumers only care about the latest value,
// and a slow reader drops intermediate updates rather than blocking the
// worker.
const buffer = 8

// offer delivers ev, discarding the oldest queued event when ch is full.
func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
