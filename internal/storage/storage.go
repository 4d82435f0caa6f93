// Package storage holds session metadata and raw video bytes. Each concern has
// an interface with an in-process implementation here; the Postgres and S3
// implementations live in the repository and s3storage packages.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
)

var (
	// ErrNotFound is returned when a session or object does not exist.
	ErrNotFound = errors.New("not found")
)

// Sessions persists session metadata and chat transcripts.
type Sessions interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	UpdateStatus(ctx context.Context, id string, status model.SessionStatus, msg string) error
	UpdateProgress(ctx context.Context, id string, progress float64) error
	MarkActive(ctx context.Context, id string, ref media.Reference) error
	MarkFailed(ctx context.Context, id string, kind media.Kind, msg string) error
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	Messages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Delete(ctx context.Context, id string) error
}

// Videos stores raw uploads until the processing worker streams them to the
// remote file API.
type Videos interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
