// Command api serves the VidAI HTTP API in distributed mode. Sessions live in
// Postgres, videos in S3-compatible storage, activation is queued through
// asynq and progress arrives over Redis pub/sub from the workers.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/VidAI/internal/app"
	"github.com/dharsanguruparan/VidAI/internal/chat"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/queue"
	"github.com/dharsanguruparan/VidAI/internal/server"
	"github.com/dharsanguruparan/VidAI/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Init(ctx, "api")
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer rt.Close(context.Background())
	cfg, logger := rt.Config, rt.Log

	backends, err := app.OpenBackends(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open backends")
	}
	defer backends.Close()

	rdb, err := app.RedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()
	broker := progress.NewRedisBroker(rdb, logger)

	tasks := queue.NewClient(app.RedisClientOpt(cfg), cfg.TaskTimeout)
	defer tasks.Close()

	workflow, err := rt.Workflow(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini")
	}
	catalog := rt.Catalog()

	srv := server.New(server.Options{
		Config:     cfg,
		Sessions:   backends.Sessions,
		Videos:     backends.Videos,
		Dispatcher: tasks,
		Chat:       chat.NewService(backends.Sessions, workflow, catalog, cfg.SummaryPrompt, logger),
		Catalog:    catalog,
		Publisher:  broker,
		Subscriber: broker,
		Signer:     signing.NewSigner(cfg.SigningSecret),
		Logger:     logger,
	})
	if err := srv.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("api stopped")
		os.Exit(1)
	}
}
