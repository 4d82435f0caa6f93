package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/processing"
	"github.com/dharsanguruparan/VidAI/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner processing.JobRunner
	log    zerolog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(runner processing.JobRunner, log zerolog.Logger) *Processor {
	return &Processor{runner: runner, log: log.With().Str("component", "worker").Logger()}
}

// Handler registers the activation task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ActivateVideoTask, p.HandleActivate)
	return mux
}

// HandleActivate runs one activation. Failures are final: the session
// already carries the outcome, and uploading again would duplicate the
// remote file.
func (p *Processor) HandleActivate(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseActivatePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := p.log.With().Str("session_id", payload.SessionID).Logger()
	log.Info().Msg("activation started")

	if err := p.runner.Run(ctx, processing.Job{SessionID: payload.SessionID}); err != nil {
		return fmt.Errorf("activate %s: %v: %w", payload.SessionID, err, asynq.SkipRetry)
	}
	log.Info().Msg("activation finished")
	return nil
}
