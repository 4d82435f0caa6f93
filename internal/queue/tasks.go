package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// ActivateVideoTask is scheduled each time a video is uploaded. The
	// worker streams the stored object to the remote file API and polls it
	// until the file is active.
	ActivateVideoTask = "video:activate"

	// DefaultQueue is the asynq queue the API enqueues into.
	DefaultQueue = "default"
)

// ActivatePayload is serialized into the task payload.
type ActivatePayload struct {
	SessionID string `json:"session_id"`
}

// NewActivateTask builds an activation task. The session id doubles as the
// asynq task id so a session can only be queued once.
func NewActivateTask(payload ActivatePayload, timeout time.Duration) (*asynq.Task, error) {
	if payload.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.TaskID(payload.SessionID),
		asynq.Queue(DefaultQueue),
		// The poll loop is the only retry; a second upload would duplicate
		// the remote file.
		asynq.MaxRetry(0),
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(ActivateVideoTask, data, opts...), nil
}

// ParseActivatePayload decodes a task payload.
func ParseActivatePayload(task *asynq.Task) (ActivatePayload, error) {
	var payload ActivatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.SessionID == "" {
		return payload, errors.New("decode payload: missing session id")
	}
	return payload, nil
}

// Client enqueues and cancels activation tasks.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	timeout   time.Duration
}

// NewClient connects to the Redis instance backing asynq.
func NewClient(opt asynq.RedisClientOpt, timeout time.Duration) *Client {
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		timeout:   timeout,
	}
}

// Dispatch enqueues activation of a session's video.
func (c *Client) Dispatch(ctx context.Context, sessionID string) error {
	task, err := NewActivateTask(ActivatePayload{SessionID: sessionID}, c.timeout)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue activate task: %w", err)
	}
	return nil
}

// Cancel removes a pending task, or signals the worker running it. A task
// that already finished is not an error.
func (c *Client) Cancel(_ context.Context, sessionID string) error {
	err := c.inspector.DeleteTask(DefaultQueue, sessionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return nil
	}
	// Active tasks cannot be deleted; ask the worker to cancel its context.
	if cerr := c.inspector.CancelProcessing(sessionID); cerr != nil {
		return fmt.Errorf("cancel activate task: %w", cerr)
	}
	return nil
}

// Close releases the Redis connections.
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}
