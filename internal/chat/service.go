// Package chat holds the conversation about an active session video. Every
// turn is a single stateless generation call; the transcript is kept for
// display only and never sent back to the model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/metrics"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

var (
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrUnknownModel = errors.New("unknown model")
	// ErrBusy is returned when a previous message on the same session is
	// still waiting for its reply.
	ErrBusy = errors.New("a reply is already in progress for this session")
)

// DefaultSummaryPrompt is sent once a video becomes active.
const DefaultSummaryPrompt = "Please summarize this video in detail, highlighting key events, objects, and any spoken content if applicable."

// Generator is the generation half of media.Workflow.
type Generator interface {
	Generate(ctx context.Context, req media.GenerationRequest) (string, error)
}

// Exchange is a user message and the reply it produced.
type Exchange struct {
	User  *model.ChatMessage `json:"user,omitempty"`
	Reply *model.ChatMessage `json:"reply"`
}

// Service sends prompts about a session's video and records the transcript.
type Service struct {
	sessions      storage.Sessions
	gen           Generator
	catalog       *model.Catalog
	summaryPrompt string
	log           zerolog.Logger

	locks sync.Map // session id -> *sync.Mutex
}

// NewService wires a Service. An empty summaryPrompt uses
// DefaultSummaryPrompt.
func NewService(sessions storage.Sessions, gen Generator, catalog *model.Catalog, summaryPrompt string, log zerolog.Logger) *Service {
	if strings.TrimSpace(summaryPrompt) == "" {
		summaryPrompt = DefaultSummaryPrompt
	}
	return &Service{
		sessions:      sessions,
		gen:           gen,
		catalog:       catalog,
		summaryPrompt: summaryPrompt,
		log:           log.With().Str("component", "chat").Logger(),
	}
}

// Send asks one question about the session's video. On a generation failure
// the returned Exchange holds the error reply that was recorded, and err is
// the classified media error.
func (s *Service) Send(ctx context.Context, sessionID, prompt, modelID string) (*Exchange, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	opt, ok := s.catalog.Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
	}

	mu := s.lock(sessionID)
	if !mu.TryLock() {
		return nil, ErrBusy
	}
	defer mu.Unlock()

	sess, err := s.readySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	persist := context.WithoutCancel(ctx)
	user := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    model.SenderUser,
		Text:      prompt,
		Model:     opt.ID,
	}
	if err := s.sessions.AppendMessage(persist, user); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	reply, genErr := s.generate(ctx, sess, prompt, opt.ID)
	if err := s.sessions.AppendMessage(persist, reply); err != nil {
		return nil, fmt.Errorf("store reply: %w", err)
	}
	return &Exchange{User: user, Reply: reply}, genErr
}

// Summarize requests the initial description of a freshly activated video
// with the session's model and records it as the first AI message.
func (s *Service) Summarize(ctx context.Context, sessionID string) error {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.readySession(ctx, sessionID)
	if err != nil {
		return err
	}
	modelID := sess.Model
	if _, ok := s.catalog.Lookup(modelID); !ok {
		modelID = s.catalog.Default()
	}
	reply, genErr := s.generate(ctx, sess, s.summaryPrompt, modelID)
	if err := s.sessions.AppendMessage(context.WithoutCancel(ctx), reply); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return genErr
}

// Forget drops per-session bookkeeping after a session is deleted.
func (s *Service) Forget(sessionID string) {
	s.locks.Delete(sessionID)
}

func (s *Service) readySession(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusActive || sess.Media == nil || !sess.Media.Valid() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, media.ErrPreconditionNotReady)
	}
	return sess, nil
}

func (s *Service) generate(ctx context.Context, sess *model.Session, prompt, modelID string) (*model.ChatMessage, error) {
	start := time.Now()
	text, err := s.gen.Generate(ctx, media.GenerationRequest{
		Media:  *sess.Media,
		Prompt: prompt,
		Model:  modelID,
	})
	reply := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Sender:    model.SenderAI,
		Model:     modelID,
	}
	if err != nil {
		kind := media.KindOf(err)
		metrics.RecordGeneration(modelID, kind.String(), time.Since(start))
		s.log.Warn().Err(err).Str("session_id", sess.ID).Str("kind", kind.String()).Msg("generation failed")
		reply.Text = "Sorry, I couldn't process that: " + err.Error()
		reply.IsError = true
		return reply, err
	}
	metrics.RecordGeneration(modelID, "ok", time.Since(start))
	reply.Text = text
	return reply, nil
}

func (s *Service) lock(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
