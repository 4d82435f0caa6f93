package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dharsanguruparan/VidAI/internal/media"
)

var (
	_ media.FileService = (*Client)(nil)
	_ media.Generator   = (*Client)(nil)
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), "  ", zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestToJob(t *testing.T) {
	job := toJob(&genai.File{
		Name:        "files/abc",
		DisplayName: "clip.mp4",
		MIMEType:    "video/mp4",
		URI:         "https://generativelanguage.googleapis.com/v1beta/files/abc",
		State:       genai.FileStateActive,
	})
	assert.Equal(t, &media.Job{
		ID:          "files/abc",
		State:       media.JobActive,
		URI:         "https://generativelanguage.googleapis.com/v1beta/files/abc",
		ContentType: "video/mp4",
		DisplayName: "clip.mp4",
	}, job)

	failed := toJob(&genai.File{Name: "files/x", State: genai.FileStateFailed, Error: &genai.FileStatus{Message: "bad codec"}})
	assert.Equal(t, media.JobFailed, failed.State)
	assert.Equal(t, "bad codec", failed.Reason)

	assert.Equal(t, media.JobPending, toJob(&genai.File{Name: "files/y", State: genai.FileStateProcessing}).State)
	assert.Equal(t, media.JobPending, toJob(&genai.File{Name: "files/z"}).State)
	assert.Nil(t, toJob(nil))
}

func TestUserTurn(t *testing.T) {
	contents := userTurn(media.GenerationRequest{
		Media:  media.Reference{URI: "gs://x", ContentType: "video/mp4"},
		Prompt: "Describe it",
		Model:  "m",
	})
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "gs://x", contents[0].Parts[0].FileData.FileURI)
	assert.Equal(t, "video/mp4", contents[0].Parts[0].FileData.MIMEType)
	assert.Equal(t, "Describe it", contents[0].Parts[1].Text)
}

func TestWrapError(t *testing.T) {
	err := wrapError(fmt.Errorf("upload: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"}))
	var remote *media.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 429, remote.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", remote.Status)
	assert.Contains(t, remote.Message, "slow down")
	assert.Equal(t, media.KindQuotaExceeded, media.Classify(media.OpGenerate, "m", err).Kind)

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, wrapError(plain))
}

func TestVendorMIMEType(t *testing.T) {
	cases := map[string]string{
		"video/mp4":              "video/mp4",
		"video/quicktime":        "video/mov",
		"video/x-msvideo":        "video/avi",
		"video/x-ms-asf":         "video/wmv",
		"VIDEO/WEBM; codecs=vp9": "video/webm",
		"video/3gpp":             "video/3gpp",
		" video/mpg ":            "video/mpeg",
	}
	for in, want := range cases {
		assert.Equal(t, want, VendorMIMEType(in), in)
	}
}
