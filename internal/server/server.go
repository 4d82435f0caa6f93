// Package server exposes sessions, progress streams and the conversation over
// HTTP. The same handlers back the standalone server and the distributed API;
// only the injected stores and dispatcher differ.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/chat"
	"github.com/dharsanguruparan/VidAI/internal/config"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/signing"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

// Dispatcher hands uploaded sessions to the activation workers. Implemented
// by processing.Pool and queue.Client.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string) error
	Cancel(ctx context.Context, sessionID string) error
}

// Presigner is implemented by video stores that can hand out direct URLs.
type Presigner interface {
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Options carries the server's dependencies.
type Options struct {
	Config     *config.Config
	Sessions   storage.Sessions
	Videos     storage.Videos
	Dispatcher Dispatcher
	Chat       *chat.Service
	Catalog    *model.Catalog
	Publisher  progress.Publisher
	Subscriber progress.Subscriber
	Signer     *signing.Signer
	Logger     zerolog.Logger
}

// Server hosts HTTP handlers for VidAI.
type Server struct {
	cfg        *config.Config
	sessions   storage.Sessions
	videos     storage.Videos
	dispatcher Dispatcher
	chat       *chat.Service
	catalog    *model.Catalog
	publisher  progress.Publisher
	subscriber progress.Subscriber
	signer     *signing.Signer
	log        zerolog.Logger
	keepAlive  time.Duration
}

// New creates a configured server.
func New(opts Options) *Server {
	return &Server{
		cfg:        opts.Config,
		sessions:   opts.Sessions,
		videos:     opts.Videos,
		dispatcher: opts.Dispatcher,
		chat:       opts.Chat,
		catalog:    opts.Catalog,
		publisher:  opts.Publisher,
		subscriber: opts.Subscriber,
		signer:     opts.Signer,
		log:        opts.Logger.With().Str("component", "http").Logger(),
		keepAlive:  15 * time.Second,
	}
}

// Serve launches the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("addr", s.cfg.Address).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionRoute)
	mux.HandleFunc("/download", s.handleDownload)
	return corsMiddleware(s.loggingMiddleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"models":  s.catalog.Options(),
		"default": s.catalog.Default(),
	})
}
