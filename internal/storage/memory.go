package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
)

// MemoryStore keeps sessions in maps guarded by an RWMutex. Status reads
// dominate (progress polling), so readers never block each other.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	messages map[string][]model.ChatMessage
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		messages: make(map[string][]model.ChatMessage),
	}
}

// Create inserts or replaces a session.
func (m *MemoryStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = model.StatusQueued
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

// List returns all sessions, newest first.
func (m *MemoryStore) List(_ context.Context) ([]model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus sets status and message.
func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status model.SessionStatus, msg string) error {
	return m.update(id, func(s *model.Session) {
		s.Status = status
		s.Message = msg
	})
}

// UpdateProgress stores the latest progress percentage.
func (m *MemoryStore) UpdateProgress(_ context.Context, id string, progress float64) error {
	return m.update(id, func(s *model.Session) {
		s.Progress = progress
	})
}

// MarkActive attaches the processed media reference.
func (m *MemoryStore) MarkActive(_ context.Context, id string, ref media.Reference) error {
	return m.update(id, func(s *model.Session) {
		r := ref
		s.Status = model.StatusActive
		s.Progress = 100
		s.Media = &r
		s.ErrorKind = ""
		s.Message = ""
	})
}

// MarkFailed records a terminal failure. Canceled runs land in
// model.StatusCanceled so the client can tell them apart.
func (m *MemoryStore) MarkFailed(_ context.Context, id string, kind media.Kind, msg string) error {
	return m.update(id, func(s *model.Session) {
		s.Status = FailedStatus(kind)
		s.Progress = 0
		s.Media = nil
		s.ErrorKind = kind.String()
		s.Message = msg
	})
}

// AppendMessage adds a message to the session transcript.
func (m *MemoryStore) AppendMessage(_ context.Context, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[msg.SessionID]; !ok {
		return ErrNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

// Messages returns the transcript in insertion order.
func (m *MemoryStore) Messages(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	msgs := m.messages[sessionID]
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Delete removes a session and its transcript.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *MemoryStore) update(id string, fn func(*model.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneSession(s *model.Session) *model.Session {
	cp := *s
	if s.Media != nil {
		ref := *s.Media
		cp.Media = &ref
	}
	return &cp
}

// FailedStatus maps an error kind onto the session status it produces.
func FailedStatus(kind media.Kind) model.SessionStatus {
	if kind == media.KindCanceled {
		return model.StatusCanceled
	}
	return model.StatusFailed
}
