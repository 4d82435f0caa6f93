package progress

import (
	"context"
	"sync"
)

// Hub is the in-process Publisher and Subscriber used by the standalone
// server.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Publish delivers ev to every current subscriber of its session.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.SessionID] {
		offer(ch, ev)
	}
	return nil
}

// Subscribe registers a subscriber for sessionID.
func (h *Hub) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[sessionID], ch)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		close(ch)
		h.mu.Unlock()
	}()
	return ch, cancel, nil
}
