// Command worker consumes video activation tasks from asynq. It shares
// Postgres, the object store and Redis with the api binary.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VidAI/internal/app"
	"github.com/dharsanguruparan/VidAI/internal/chat"
	"github.com/dharsanguruparan/VidAI/internal/processing"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/queue"
	"github.com/dharsanguruparan/VidAI/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Init(ctx, "worker")
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

	workflow, err := rt.Workflow(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini")
	}
	summarizer := chat.NewService(backends.Sessions, workflow, rt.Catalog(), cfg.SummaryPrompt, logger)
	runner := processing.NewRunner(backends.Sessions, backends.Videos, workflow, progress.NewRedisBroker(rdb, logger), summarizer, logger)

	server := asynq.NewServer(app.RedisClientOpt(cfg), asynq.Config{
		Concurrency: cfg.ProcessingPool,
		Queues:      map[string]int{queue.DefaultQueue: 1},
		Logger:      worker.NewAsynqLogger(logger),
	})
	mux := worker.NewProcessor(runner, logger).Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info().Int("concurrency", cfg.ProcessingPool).Msg("worker started")
	if err := server.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
