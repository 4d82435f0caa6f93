package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dharsanguruparan/VidAI/internal/progress"
)

// handleEvents streams progress as server-sent events until the session
// reaches a terminal status or the client goes away. The first event is the
// stored snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}
	ctx := r.Context()

	// Subscribe before reading the snapshot so no update falls in between.
	events, stop, err := s.subscriber.Subscribe(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("subscribe progress")
		respondError(w, http.StatusServiceUnavailable, "progress stream unavailable", "")
		return
	}
	defer stop()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := progress.Event{
		SessionID: sess.ID,
		Status:    sess.Status,
		Progress:  sess.Progress,
		ErrorKind: sess.ErrorKind,
		Message:   sess.Message,
	}
	if err := writeEvent(w, snapshot); err != nil {
		return
	}
	flusher.Flush()
	if snapshot.Terminal() {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if ev.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev progress.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	return err
}
