// Package app holds the start-up steps shared by the VidAI binaries.
package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/config"
	"github.com/dharsanguruparan/VidAI/internal/gemini"
	"github.com/dharsanguruparan/VidAI/internal/logger"
	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/observability"
)

// Runtime is the configuration, logger and telemetry of a running binary.
type Runtime struct {
	Config   *config.Config
	Log      zerolog.Logger
	Shutdown observability.Shutdown
}

// Init loads .env files and configuration, builds the logger and starts
// tracing. Callers defer rt.Close.
func Init(ctx context.Context, component string) (*Runtime, error) {
	if err := config.LoadEnvFiles(".env", ".env.local"); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg).With().Str("binary", component).Logger()
	shutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &Runtime{Config: cfg, Log: log, Shutdown: shutdown}, nil
}

// Close flushes telemetry.
func (rt *Runtime) Close(ctx context.Context) {
	if err := rt.Shutdown(ctx); err != nil {
		rt.Log.Warn().Err(err).Msg("tracing shutdown")
	}
}

// Catalog returns the configured model catalog.
func (rt *Runtime) Catalog() *model.Catalog {
	return model.NewCatalog(rt.Config.Models, rt.Config.DefaultModel)
}

// Workflow connects to Gemini with the resolved API key and returns the
// media workflow configured from the polling settings.
func (rt *Runtime) Workflow(ctx context.Context) (*media.Workflow, error) {
	return NewWorkflow(ctx, rt.Config, rt.Log)
}

// NewWorkflow is Workflow without a Runtime, for callers that log elsewhere.
func NewWorkflow(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*media.Workflow, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client, err := gemini.New(ctx, cfg.APIKey, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("key_source", cfg.APIKeySource).Msg("gemini client ready")
	return media.NewWorkflow(client, client,
		media.WithPollInterval(cfg.PollInterval),
		media.WithMaxAttempts(cfg.MaxPollAttempts),
		media.WithLogger(log),
	), nil
}

// RedisClientOpt is the asynq connection for the configured Redis.
func RedisClientOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// RedisClient opens a go-redis client for progress pub/sub and pings it.
func RedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
