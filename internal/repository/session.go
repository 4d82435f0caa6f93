package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

// SessionRepository wraps all SQL used by the API and worker. It implements
// storage.Sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, file_name, content_type, size_bytes, object_key, model, status, progress,
	media_uri, media_type, media_name, error_kind, message, created_at, updated_at`

// Create inserts a session before processing begins.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = model.StatusQueued
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, file_name, content_type, size_bytes, object_key, model, status, progress, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.FileName, s.ContentType, s.Size, s.ObjectKey, s.Model, s.Status, s.Progress, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

// List returns all sessions, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateStatus sets status and message.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, msg string) error {
	return r.exec(ctx, `UPDATE sessions SET status=$1, message=$2, updated_at=$3 WHERE id=$4`,
		status, msg, time.Now().UTC(), id)
}

// UpdateProgress stores the latest progress percentage.
func (r *SessionRepository) UpdateProgress(ctx context.Context, id string, progress float64) error {
	return r.exec(ctx, `UPDATE sessions SET progress=$1, updated_at=$2 WHERE id=$3`,
		progress, time.Now().UTC(), id)
}

// MarkActive attaches the processed media reference.
func (r *SessionRepository) MarkActive(ctx context.Context, id string, ref media.Reference) error {
	return r.exec(ctx, `
		UPDATE sessions
		SET status=$1, progress=100, media_uri=$2, media_type=$3, media_name=$4,
			error_kind=NULL, message=NULL, updated_at=$5
		WHERE id=$6
	`, model.StatusActive, ref.URI, ref.ContentType, ref.DisplayName, time.Now().UTC(), id)
}

// MarkFailed records a terminal failure and clears any media reference.
func (r *SessionRepository) MarkFailed(ctx context.Context, id string, kind media.Kind, msg string) error {
	return r.exec(ctx, `
		UPDATE sessions
		SET status=$1, progress=0, media_uri=NULL, media_type=NULL, media_name=NULL,
			error_kind=$2, message=$3, updated_at=$4
		WHERE id=$5
	`, storage.FailedStatus(kind), kind.String(), msg, time.Now().UTC(), id)
}

// AppendMessage adds a message to the session transcript.
func (r *SessionRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, body, model, is_error, created_at)
		SELECT $1,$2,$3,$4,$5,$6,$7 WHERE EXISTS (SELECT 1 FROM sessions WHERE id=$2)
	`, msg.ID, msg.SessionID, msg.Sender, msg.Text, msg.Model, msg.IsError, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Messages returns the transcript in insertion order.
func (r *SessionRepository) Messages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if _, err := r.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, sender, body, COALESCE(model,''), is_error, created_at
		FROM chat_messages WHERE session_id=$1 ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()
	out := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Text, &m.Model, &m.IsError, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a session; its messages cascade.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
}

func (r *SessionRepository) exec(ctx context.Context, stmt string, args ...any) error {
	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		s                          model.Session
		mediaURI, mediaType, mName sql.NullString
		errorKind, message         sql.NullString
	)
	if err := row.Scan(&s.ID, &s.FileName, &s.ContentType, &s.Size, &s.ObjectKey, &s.Model, &s.Status, &s.Progress,
		&mediaURI, &mediaType, &mName, &errorKind, &message, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if mediaURI.Valid && mediaURI.String != "" {
		s.Media = &media.Reference{URI: mediaURI.String, ContentType: mediaType.String, DisplayName: mName.String}
	}
	s.ErrorKind = errorKind.String
	s.Message = message.String
	return &s, nil
}
