package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/signing"
)

func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	// The /sessions/ prefix supports nested resources like
	// /sessions/{id}/messages.
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleSession(w, r, id)
		case http.MethodDelete:
			s.handleDelete(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}
	switch parts[1] {
	case "cancel":
		s.handleCancel(w, r, id)
	case "events":
		s.handleEvents(w, r, id)
	case "messages":
		s.handleMessages(w, r, id)
	case "video-url":
		s.handleVideoURL(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// handleDelete cancels any activation still in flight and drops the session
// with its stored video and transcript.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if !sess.Status.Terminal() {
		if err := s.dispatcher.Cancel(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("session_id", id).Msg("cancel activation")
		}
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		respondErr(w, err)
		return
	}
	if err := s.videos.Remove(ctx, sess.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("session_id", id).Msg("remove video")
	}
	if s.chat != nil {
		s.chat.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCancel stops an activation but keeps the session, which ends up in
// the canceled state.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if sess.Status.Terminal() {
		respondError(w, http.StatusConflict, "session is already "+string(sess.Status), "")
		return
	}
	if err := s.dispatcher.Cancel(ctx, id); err != nil {
		respondErr(w, err)
		return
	}
	// A job that never started has no worker to record the outcome.
	if sess.Status == model.StatusQueued {
		const msg = "Upload canceled."
		if err := s.sessions.MarkFailed(ctx, id, media.KindCanceled, msg); err != nil {
			respondErr(w, err)
			return
		}
		s.publish(ctx, progress.Event{
			SessionID: id,
			Status:    model.StatusCanceled,
			ErrorKind: media.KindCanceled.String(),
			Message:   msg,
		})
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "canceling"})
}

type sendRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type sendResponse struct {
	Error string             `json:"error,omitempty"`
	Kind  string             `json:"kind,omitempty"`
	User  *model.ChatMessage `json:"user,omitempty"`
	Reply *model.ChatMessage `json:"reply,omitempty"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		msgs, err := s.sessions.Messages(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, msgs)
	case http.MethodPost:
		var req sendRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body", "")
			return
		}
		ex, err := s.chat.Send(r.Context(), id, req.Prompt, req.Model)
		if err != nil {
			if ex == nil {
				respondErr(w, err)
				return
			}
			// The error reply is part of the transcript; return it with the
			// failure so clients can render it.
			status, kind := statusFor(err)
			respondJSON(w, status, sendResponse{
				Error: err.Error(),
				Kind:  kind,
				User:  ex.User,
				Reply: ex.Reply,
			})
			return
		}
		respondJSON(w, http.StatusOK, sendResponse{User: ex.User, Reply: ex.Reply})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVideoURL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if p, ok := s.videos.(Presigner); ok {
		u, err := p.PresignURL(ctx, sess.ObjectKey, s.cfg.SignedURLTTL)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", id).Msg("presign video")
			respondError(w, http.StatusInternalServerError, "failed to generate url", "")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"url": u})
		return
	}
	u, expires := s.signer.URL("/download", id, s.cfg.SignedURLTTL)
	respondJSON(w, http.StatusOK, map[string]string{
		"url":     u,
		"expires": strconv.FormatInt(expires.Unix(), 10),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	id, expires, signature := q.Get("session"), q.Get("expires"), q.Get("signature")
	if id == "" || expires == "" || signature == "" {
		respondError(w, http.StatusBadRequest, "missing parameters", "")
		return
	}
	if err := s.signer.Verify(id, expires, signature); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, signing.ErrExpired) {
			status = http.StatusGone
		}
		respondError(w, status, err.Error(), "")
		return
	}
	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	body, err := s.videos.Open(ctx, sess.ObjectKey)
	if err != nil {
		respondErr(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", sess.ContentType)
	w.Header().Set("Content-Disposition", "inline; filename=\""+strings.ReplaceAll(sess.FileName, "\"", "")+"\"")
	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, sess.FileName, sess.UpdatedAt, rs)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(sess.Size, 10))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		s.log.Warn().Err(err).Str("session_id", id).Msg("stream video")
	}
}

func (s *Server) publish(ctx context.Context, ev progress.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("publish progress")
	}
}
