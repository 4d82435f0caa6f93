package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Videos = (*DiskStore)(nil)

func TestDiskStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "abc.mp4", strings.NewReader("frames"), 6, "video/mp4"))
	rc, err := store.Open(ctx, "abc.mp4")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	require.NoError(t, store.Remove(ctx, "abc.mp4"))
	_, err = store.Open(ctx, "abc.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Remove(ctx, "abc.mp4"))
}

func TestDiskStoreShortWrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(ctx, "abc.mp4", strings.NewReader("abc"), 10, "video/mp4")
	require.Error(t, err)
	_, err = store.Open(ctx, "abc.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreKeysStayInRoot(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "../../escape.mp4", strings.NewReader("x"), -1, ""))
	rc, err := store.Open(ctx, "escape.mp4")
	require.NoError(t, err)
	_ = rc.Close()

	assert.Error(t, store.Put(ctx, "..", strings.NewReader("x"), -1, ""))
}
