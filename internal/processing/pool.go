package processing

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/VidAI/internal/metrics"
)

// ErrQueueFull is returned by Dispatch when every buffered slot is taken.
var ErrQueueFull = errors.New("processing queue full")

// JobRunner executes one job.
type JobRunner interface {
	Run(ctx context.Context, job Job) error
}

type queued struct {
	job    Job
	ctx    context.Context
	cancel context.CancelFunc
}

// Pool consumes Jobs on a fixed number of goroutines. Each dispatched job
// gets its own context so a single session can be canceled.
type Pool struct {
	runner  JobRunner
	queue   chan *queued
	workers int
	log     zerolog.Logger

	mu      sync.Mutex
	root    context.Context
	pending map[string]*queued
	wg      sync.WaitGroup
}

// NewPool builds a Pool with queue capacity tied to worker count.
func NewPool(runner JobRunner, workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		runner:  runner,
		queue:   make(chan *queued, workers*4),
		workers: workers,
		log:     log.With().Str("component", "processing-pool").Logger(),
		root:    context.Background(),
		pending: make(map[string]*queued),
	}
}

// Start launches worker goroutines. They exit when ctx is done, which also
// cancels every job still running.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.root = ctx
	p.mu.Unlock()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() { p.wg.Wait() }

// Dispatch queues activation of a session.
func (p *Pool) Dispatch(_ context.Context, sessionID string) error {
	p.mu.Lock()
	ctx, cancel := context.WithCancel(p.root)
	q := &queued{job: Job{SessionID: sessionID}, ctx: ctx, cancel: cancel}
	if prev, ok := p.pending[sessionID]; ok {
		prev.cancel()
	}
	p.pending[sessionID] = q
	p.mu.Unlock()

	select {
	case p.queue <- q:
		metrics.QueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.release(q)
		p.log.Warn().Str("session_id", sessionID).Msg("processing queue full, rejecting job")
		return ErrQueueFull
	}
}

// Cancel cancels the context of a queued or running job. Unknown sessions
// are ignored.
func (p *Pool) Cancel(_ context.Context, sessionID string) error {
	p.mu.Lock()
	q, ok := p.pending[sessionID]
	p.mu.Unlock()
	if ok {
		q.cancel()
	}
	return nil
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-p.queue:
			metrics.QueueDepth.Set(float64(len(p.queue)))
			if err := p.runner.Run(q.ctx, q.job); err != nil {
				p.log.Debug().Err(err).Str("session_id", q.job.SessionID).Msg("job finished with error")
			}
			p.release(q)
		}
	}
}

func (p *Pool) release(q *queued) {
	q.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[q.job.SessionID] == q {
		delete(p.pending, q.job.SessionID)
	}
}
