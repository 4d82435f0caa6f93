package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
)

var _ Sessions = (*MemoryStore)(nil)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &model.Session{ID: "s1", FileName: "clip.mp4", Model: "m"}))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, store.UpdateStatus(ctx, "s1", model.StatusProcessing, "uploading"))
	require.NoError(t, store.UpdateProgress(ctx, "s1", 42))
	got, _ = store.Get(ctx, "s1")
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Equal(t, 42.0, got.Progress)

	ref := media.Reference{URI: "gs://x", ContentType: "video/mp4", DisplayName: "clip.mp4"}
	require.NoError(t, store.MarkActive(ctx, "s1", ref))
	got, _ = store.Get(ctx, "s1")
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	require.NotNil(t, got.Media)
	assert.Equal(t, ref, *got.Media)

	// Returned copies must not alias internal state.
	got.Media.URI = "mutated"
	again, _ := store.Get(ctx, "s1")
	assert.Equal(t, "gs://x", again.Media.URI)
}

func TestMemoryStoreMarkFailed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &model.Session{ID: "s1"}))
	require.NoError(t, store.Create(ctx, &model.Session{ID: "s2"}))

	require.NoError(t, store.MarkFailed(ctx, "s1", media.KindActivationTimeout, "File processing timed out."))
	require.NoError(t, store.MarkFailed(ctx, "s2", media.KindCanceled, "Operation canceled"))

	s1, _ := store.Get(ctx, "s1")
	assert.Equal(t, model.StatusFailed, s1.Status)
	assert.Equal(t, "activation_timeout", s1.ErrorKind)
	assert.Zero(t, s1.Progress)

	s2, _ := store.Get(ctx, "s2")
	assert.Equal(t, model.StatusCanceled, s2.Status)
}

func TestMemoryStoreMessages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.ErrorIs(t, store.AppendMessage(ctx, &model.ChatMessage{SessionID: "nope"}), ErrNotFound)

	require.NoError(t, store.Create(ctx, &model.Session{ID: "s1"}))
	require.NoError(t, store.AppendMessage(ctx, &model.ChatMessage{ID: "m1", SessionID: "s1", Sender: model.SenderUser, Text: "hi"}))
	require.NoError(t, store.AppendMessage(ctx, &model.ChatMessage{ID: "m2", SessionID: "s1", Sender: model.SenderAI, Text: "hello"}))

	msgs, err := store.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, model.SenderAI, msgs[1].Sender)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Messages(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "s1"), ErrNotFound)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateProgress(ctx, "missing", 5), ErrNotFound)
}
