package media

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultPollInterval is the fixed pause between job-status queries.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxAttempts is the attempt budget of the poll loop.
	DefaultMaxAttempts = 60

	// UploadedProgress is reported once the ingestion call returns a job.
	UploadedProgress = 5
	pollSpan         = 90
)

var tracer = otel.Tracer("github.com/dharsanguruparan/VidAI/internal/media")

// PollProgress is the synthetic progress after the given number of poll
// attempts: a linear walk from 5 to 95 over the attempt budget. It never
// reaches 100; only activation does.
func PollProgress(attempt, maxAttempts int) float64 {
	if maxAttempts <= 0 {
		return UploadedProgress + pollSpan
	}
	return UploadedProgress + math.Min(pollSpan, float64(attempt)/float64(maxAttempts)*pollSpan)
}

// Workflow runs the upload/poll loop and single-turn generation calls against
// a remote file API.
type Workflow struct {
	files        FileService
	gen          Generator
	pollInterval time.Duration
	maxAttempts  int
	wait         func(ctx context.Context, d time.Duration) error
	log          zerolog.Logger
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Workflow) {
		if d >= 0 {
			w.pollInterval = d
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Workflow) {
		w.log = log.With().Str("component", "media-workflow").Logger()
	}
}

// NewWorkflow builds a Workflow. gen may be nil for callers that only upload.
func NewWorkflow(files FileService, gen Generator, opts ...Option) *Workflow {
	w := &Workflow{
		files:        files,
		gen:          gen,
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		wait:         sleep,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// UploadAndActivate submits req, polls until the remote job is ACTIVE and
// returns a Reference to it. onProgress is called synchronously at every
// step; values only go down on the explicit reset to 0 after a timeout,
// a malformed activation or cancellation.
func (w *Workflow) UploadAndActivate(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (Reference, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	ctx, span := tracer.Start(ctx, "media.UploadAndActivate", trace.WithAttributes(
		attribute.String("media.display_name", req.DisplayName),
		attribute.String("media.content_type", req.ContentType),
	))
	defer span.End()

	onProgress(0)
	job, err := w.files.Upload(ctx, req)
	if err != nil {
		return Reference{}, w.fail(span, Classify(OpUpload, "", err))
	}
	if job == nil || job.ID == "" {
		return Reference{}, w.fail(span, newError(KindMalformedResponse, OpUpload, nil,
			"File upload response is missing essential data (file name identifier)."))
	}
	onProgress(UploadedProgress)

	log := w.log.With().Str("file", job.ID).Logger()
	log.Info().Str("state", string(job.State)).Msg("upload accepted, polling for activation")

	attempts := 0
	for job.State != JobActive && attempts < w.maxAttempts {
		if err := w.wait(ctx, w.pollInterval); err != nil {
			onProgress(0)
			return Reference{}, w.fail(span, Classify(OpPoll, "", err))
		}
		attempts++
		onProgress(PollProgress(attempts, w.maxAttempts))

		log.Debug().Int("attempt", attempts).Int("max_attempts", w.maxAttempts).Msg("polling file status")
		next, err := w.files.Status(ctx, job.ID)
		if err == nil && next == nil {
			err = newError(KindMalformedResponse, OpPoll, nil, "empty file status response")
		}
		if err != nil {
			if ctx.Err() != nil {
				onProgress(0)
				return Reference{}, w.fail(span, Classify(OpPoll, "", ctx.Err()))
			}
			if attempts >= w.maxAttempts {
				return Reference{}, w.fail(span, newError(KindPollingExhausted, OpPoll, err,
					"Failed to get active file status after %d attempts: %s", w.maxAttempts, err.Error()))
			}
			log.Warn().Err(err).Int("attempt", attempts).Msg("file status poll failed, retrying")
			continue
		}
		if next.ID == "" {
			next.ID = job.ID
		}
		job = next
		if job.State == JobFailed {
			reason := job.Reason
			if reason == "" {
				reason = "Unknown processing error."
			}
			return Reference{}, w.fail(span, newError(KindRemoteProcessingFailed, OpPoll, nil,
				"File processing failed. State: %s. Reason: %s", job.State, reason))
		}
	}
	span.SetAttributes(attribute.Int("media.poll_attempts", attempts))

	if job.State != JobActive {
		onProgress(0)
		return Reference{}, w.fail(span, newError(KindActivationTimeout, OpPoll, nil,
			"Video file did not become active after %d attempts. Last state: %s.", attempts, job.State))
	}
	if job.URI == "" || job.ContentType == "" {
		onProgress(0)
		return Reference{}, w.fail(span, newError(KindMalformedResponse, OpPoll, nil,
			"Processed file is missing URI or mimeType even after becoming active."))
	}

	log.Info().Str("uri", job.URI).Int("attempts", attempts).Msg("file is active")
	onProgress(100)
	name := job.DisplayName
	if name == "" {
		name = req.DisplayName
	}
	return Reference{URI: job.URI, ContentType: job.ContentType, DisplayName: name}, nil
}

// Generate sends one stateless user turn made of the media reference and the
// prompt, and returns the model's text verbatim.
func (w *Workflow) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "media.Generate", trace.WithAttributes(
		attribute.String("media.model", req.Model),
	))
	defer span.End()

	if !req.Media.Valid() {
		return "", w.fail(span, newError(KindPreconditionNotReady, OpGenerate, nil,
			"Failed to use video: File is not ready. This might indicate an issue with the upload or processing status."))
	}
	text, err := w.gen.GenerateContent(ctx, req)
	if err != nil {
		return "", w.fail(span, Classify(OpGenerate, req.Model, err))
	}
	return text, nil
}

func (w *Workflow) fail(span trace.Span, err *Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Kind.String())
	w.log.Error().Str("kind", err.Kind.String()).Str("op", string(err.Op)).Msg(err.Msg)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
