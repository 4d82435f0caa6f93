package processing

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
	"github.com/dharsanguruparan/VidAI/internal/progress"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

type scriptedFiles struct {
	mu       sync.Mutex
	uploaded string
	statuses []*media.Job
	polls    int
}

func (f *scriptedFiles) Upload(_ context.Context, req media.UploadRequest) (*media.Job, error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploaded = string(data)
	f.mu.Unlock()
	return &media.Job{ID: "files/1", State: media.JobPending}, nil
}

func (f *scriptedFiles) Status(context.Context, string) (*media.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.polls++
	job := *f.statuses[i]
	return &job, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []progress.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev progress.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type countingSummarizer struct {
	calls []string
	err   error
}

func (s *countingSummarizer) Summarize(_ context.Context, id string) error {
	s.calls = append(s.calls, id)
	return s.err
}

type runnerEnv struct {
	sessions *storage.MemoryStore
	videos   *storage.DiskStore
	files    *scriptedFiles
	events   *recordingPublisher
	summary  *countingSummarizer
	runner   *Runner
}

func newRunnerEnv(t *testing.T, statuses ...*media.Job) *runnerEnv {
	t.Helper()
	videos, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	env := &runnerEnv{
		sessions: storage.NewMemoryStore(),
		videos:   videos,
		files:    &scriptedFiles{statuses: statuses},
		events:   &recordingPublisher{},
		summary:  &countingSummarizer{},
	}
	wf := media.NewWorkflow(env.files, nil, media.WithPollInterval(0), media.WithMaxAttempts(5))
	env.runner = NewRunner(env.sessions, env.videos, wf, env.events, env.summary, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, env.videos.Put(ctx, "s1.mp4", strings.NewReader("video-bytes"), -1, "video/mp4"))
	require.NoError(t, env.sessions.Create(ctx, &model.Session{
		ID: "s1", FileName: "clip.mp4", ContentType: "video/mp4", ObjectKey: "s1.mp4", Model: "m",
	}))
	return env
}

func TestRunnerActivatesSession(t *testing.T) {
	env := newRunnerEnv(t,
		&media.Job{State: media.JobPending},
		&media.Job{State: media.JobActive, URI: "gs://x", ContentType: "video/mp4"},
	)

	require.NoError(t, env.runner.Run(context.Background(), Job{SessionID: "s1"}))

	sess, err := env.sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, sess.Status)
	assert.Equal(t, 100.0, sess.Progress)
	require.NotNil(t, sess.Media)
	assert.Equal(t, media.Reference{URI: "gs://x", ContentType: "video/mp4", DisplayName: "clip.mp4"}, *sess.Media)
	assert.Equal(t, "video-bytes", env.files.uploaded)
	assert.Equal(t, []string{"s1"}, env.summary.calls)

	last := env.events.events[len(env.events.events)-1]
	assert.Equal(t, model.StatusActive, last.Status)
	assert.True(t, last.Terminal())
}

func TestRunnerRecordsRemoteFailure(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobFailed, Reason: "unsupported codec"})

	err := env.runner.Run(context.Background(), Job{SessionID: "s1"})
	require.ErrorIs(t, err, media.ErrRemoteProcessingFailed)

	sess, _ := env.sessions.Get(context.Background(), "s1")
	assert.Equal(t, model.StatusFailed, sess.Status)
	assert.Equal(t, "remote_processing_failed", sess.ErrorKind)
	assert.True(t, strings.HasPrefix(sess.Message, "Upload failed: "))
	assert.Contains(t, sess.Message, "unsupported codec")
	assert.Nil(t, sess.Media)
	assert.Empty(t, env.summary.calls)

	last := env.events.events[len(env.events.events)-1]
	assert.Equal(t, model.StatusFailed, last.Status)
	assert.Equal(t, "remote_processing_failed", last.ErrorKind)
}

func TestRunnerTimeoutResetsProgress(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobPending})

	err := env.runner.Run(context.Background(), Job{SessionID: "s1"})
	require.ErrorIs(t, err, media.ErrActivationTimeout)

	sess, _ := env.sessions.Get(context.Background(), "s1")
	assert.Zero(t, sess.Progress)
	assert.Equal(t, model.StatusFailed, sess.Status)
}

func TestRunnerCanceledBeforeStart(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobActive, URI: "gs://x", ContentType: "video/mp4"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.runner.Run(ctx, Job{SessionID: "s1"})
	require.ErrorIs(t, err, media.ErrCanceled)

	sess, _ := env.sessions.Get(context.Background(), "s1")
	assert.Equal(t, model.StatusCanceled, sess.Status)
	assert.Equal(t, "Upload canceled.", sess.Message)
	assert.Empty(t, env.files.uploaded)
}

func TestRunnerMissingVideo(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobActive})
	require.NoError(t, env.videos.Remove(context.Background(), "s1.mp4"))

	err := env.runner.Run(context.Background(), Job{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	sess, _ := env.sessions.Get(context.Background(), "s1")
	assert.Equal(t, model.StatusFailed, sess.Status)
}

func TestRunnerSkipsFinishedSession(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobActive})
	require.NoError(t, env.sessions.MarkFailed(context.Background(), "s1", media.KindCanceled, "Upload canceled."))

	require.NoError(t, env.runner.Run(context.Background(), Job{SessionID: "s1"}))
	assert.Empty(t, env.files.uploaded)
}

func TestRunnerSummaryFailureKeepsSessionActive(t *testing.T) {
	env := newRunnerEnv(t, &media.Job{State: media.JobActive, URI: "gs://x", ContentType: "video/mp4"})
	env.summary.err = errors.New("quota")

	require.NoError(t, env.runner.Run(context.Background(), Job{SessionID: "s1"}))
	sess, _ := env.sessions.Get(context.Background(), "s1")
	assert.Equal(t, model.StatusActive, sess.Status)
}
