// Package processing turns an uploaded session video into an active remote
// file. Runner does the work for one session; Pool runs it on goroutines in
// the standalone server, while the asynq worker calls Runner directly.
package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/metrics"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

// Job represents background activation work for one session.
type Job struct {
	SessionID string
}

// Summarizer requests the initial summary once a session is active.
type Summarizer interface {
	Summarize(ctx context.Context, sessionID string) error
}

// Activator is the upload-and-poll half of media.Workflow.
type Activator interface {
	UploadAndActivate(ctx context.Context, req media.UploadRequest, onProgress media.ProgressFunc) (media.Reference, error)
}

// Runner activates one session at a time.
type Runner struct {
	sessions   storage.Sessions
	videos     storage.Videos
	activator  Activator
	events     progress.Publisher
	summarizer Summarizer
	log        zerolog.Logger
}

// NewRunner wires a Runner. summarizer may be nil.
func NewRunner(sessions storage.Sessions, videos storage.Videos, activator Activator, events progress.Publisher, summarizer Summarizer, log zerolog.Logger) *Runner {
	return &Runner{
		sessions:   sessions,
		videos:     videos,
		activator:  activator,
		events:     events,
		summarizer: summarizer,
		log:        log.With().Str("component", "activation-runner").Logger(),
	}
}

// Run uploads the session's stored video, polls it to ACTIVE and records
// the outcome. The returned error is the classified workflow error.
func (r *Runner) Run(ctx context.Context, job Job) error {
	log := r.log.With().Str("session_id", job.SessionID).Logger()
	// Outcome writes must land even when ctx was canceled.
	persist := context.WithoutCancel(ctx)

	sess, err := r.sessions.Get(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", job.SessionID, err)
	}
	if sess.Status.Terminal() {
		log.Info().Str("status", string(sess.Status)).Msg("session already finished, skipping")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return r.finish(persist, log, sess.ID, media.Classify(media.OpUpload, "", err), time.Time{})
	}

	if err := r.sessions.UpdateStatus(ctx, sess.ID, model.StatusProcessing, "Uploading video..."); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	r.publish(persist, progress.Event{SessionID: sess.ID, Status: model.StatusProcessing})

	body, err := r.videos.Open(ctx, sess.ObjectKey)
	if err != nil {
		return r.finish(persist, log, sess.ID, media.Classify(media.OpUpload, "", fmt.Errorf("read stored video: %w", err)), time.Time{})
	}
	defer body.Close()

	start := time.Now()
	ref, err := r.activator.UploadAndActivate(ctx, media.UploadRequest{
		Body:        body,
		ContentType: sess.ContentType,
		DisplayName: sess.FileName,
	}, func(p float64) {
		if err := r.sessions.UpdateProgress(persist, sess.ID, p); err != nil {
			log.Warn().Err(err).Msg("store progress")
		}
		r.publish(persist, progress.Event{SessionID: sess.ID, Status: model.StatusProcessing, Progress: p})
	})
	if err != nil {
		return r.finish(persist, log, sess.ID, err, start)
	}

	if err := r.sessions.MarkActive(persist, sess.ID, ref); err != nil {
		return fmt.Errorf("mark active: %w", err)
	}
	metrics.RecordActivation("ok", time.Since(start))
	r.publish(persist, progress.Event{SessionID: sess.ID, Status: model.StatusActive, Progress: 100})
	log.Info().Str("uri", ref.URI).Dur("took", time.Since(start)).Msg("video active")

	if r.summarizer != nil {
		if err := r.summarizer.Summarize(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Msg("initial summary failed")
		}
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, log zerolog.Logger, id string, err error, start time.Time) error {
	kind := media.KindOf(err)
	msg := "Upload failed: " + err.Error()
	if kind == media.KindCanceled {
		msg = "Upload canceled."
	}
	if !start.IsZero() {
		metrics.RecordActivation(kind.String(), time.Since(start))
	}
	if merr := r.sessions.MarkFailed(ctx, id, kind, msg); merr != nil {
		log.Warn().Err(merr).Msg("record failure")
	}
	r.publish(ctx, progress.Event{
		SessionID: id,
		Status:    storage.FailedStatus(kind),
		ErrorKind: kind.String(),
		Message:   msg,
	})
	log.Error().Err(err).Str("kind", kind.String()).Msg("activation failed")
	return err
}

func (r *Runner) publish(ctx context.Context, ev progress.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("publish progress")
	}
}
