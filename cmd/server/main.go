// Command server runs VidAI as a single process: sessions live in memory,
// videos on local disk, and activation runs on an in-process worker pool.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dharsanguruparan/VidAI/internal/app"
	"github.com/dharsanguruparan/VidAI/internal/chat"
	"github.com/dharsanguruparan/VidAI/internal/processing"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/server"
	"github.com/dharsanguruparan/VidAI/internal/signing"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Init(ctx, "server")
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer rt.Close(context.Background())
	cfg, logger := rt.Config, rt.Log

	workflow, err := rt.Workflow(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini")
	}

	sessions := storage.NewMemoryStore()
	videos, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init upload dir")
	}
	hub := progress.NewHub()
	catalog := rt.Catalog()
	chatSvc := chat.NewService(sessions, workflow, catalog, cfg.SummaryPrompt, logger)

	runner := processing.NewRunner(sessions, videos, workflow, hub, chatSvc, logger)
	pool := processing.NewPool(runner, cfg.ProcessingPool, logger)
	pool.Start(ctx)

	srv := server.New(server.Options{
		Config:     cfg,
		Sessions:   sessions,
		Videos:     videos,
		Dispatcher: pool,
		Chat:       chatSvc,
		Catalog:    catalog,
		Publisher:  hub,
		Subscriber: hub,
		Signer:     signing.NewSigner(cfg.SigningSecret),
		Logger:     logger,
	})

	serveErr := srv.Serve(ctx)
	stop()

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn().Msg("activation workers did not stop in time")
	}

	if serveErr != nil {
		logger.Error().Err(serveErr).Msg("server stopped")
		os.Exit(1)
	}
}
