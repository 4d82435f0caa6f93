package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/VidAI/internal/config"
	"github.com/dharsanguruparan/VidAI/internal/database"
	"github.com/dharsanguruparan/VidAI/internal/repository"
	"github.com/dharsanguruparan/VidAI/internal/s3storage"
)

// Backends are the shared stores of the API and worker processes.
type Backends struct {
	DB       *pgxpool.Pool
	Sessions *repository.SessionRepository
	Videos   *s3storage.Storage
}

// OpenBackends connects to Postgres and the object store and makes sure
// the schema and bucket exist.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	store, err := s3storage.New(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return &Backends{
		DB:       pool,
		Sessions: repository.NewSessionRepository(pool),
		Videos:   store,
	}, nil
}

// Close releases the database pool.
func (b *Backends) Close() { b.DB.Close() }
