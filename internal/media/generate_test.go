package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls []GenerationRequest
	text  string
	err   error
}

func (g *fakeGenerator) GenerateContent(_ context.Context, req GenerationRequest) (string, error) {
	g.calls = append(g.calls, req)
	return g.text, g.err
}

func TestGenerateReturnsTextVerbatim(t *testing.T) {
	gen := &fakeGenerator{text: "  A cat jumps over a fence.\n"}
	w := newTestWorkflow(&fakeFiles{}, gen)
	ref := Reference{URI: "gs://x", ContentType: "video/mp4", DisplayName: "clip.mp4"}

	text, err := w.Generate(context.Background(), GenerationRequest{Media: ref, Prompt: "What happens?", Model: "gemini-2.5-flash-preview-04-17"})
	require.NoError(t, err)
	assert.Equal(t, "  A cat jumps over a fence.\n", text)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, ref, gen.calls[0].Media)
	assert.Equal(t, "What happens?", gen.calls[0].Prompt)
}

func TestGenerateIsStateless(t *testing.T) {
	gen := &fakeGenerator{text: "answer"}
	w := newTestWorkflow(&fakeFiles{}, gen)
	ref := Reference{URI: "gs://x", ContentType: "video/mp4", DisplayName: "clip.mp4"}
	req := GenerationRequest{Media: ref, Prompt: "again?", Model: "m"}

	_, err := w.Generate(context.Background(), req)
	require.NoError(t, err)
	_, err = w.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, gen.calls[0], gen.calls[1])
	assert.Equal(t, Reference{URI: "gs://x", ContentType: "video/mp4", DisplayName: "clip.mp4"}, ref)
}

func TestGenerateRefusesInvalidReference(t *testing.T) {
	gen := &fakeGenerator{text: "never"}
	w := newTestWorkflow(&fakeFiles{}, gen)

	_, err := w.Generate(context.Background(), GenerationRequest{Media: Reference{ContentType: "video/mp4"}, Prompt: "hi", Model: "m"})
	require.ErrorIs(t, err, ErrPreconditionNotReady)
	assert.Empty(t, gen.calls)
}

func TestGenerateClassifiesVendorPrecondition(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("FAILED_PRECONDITION: File abc is not in an ACTIVE state")}
	w := newTestWorkflow(&fakeFiles{}, gen)

	_, err := w.Generate(context.Background(), GenerationRequest{
		Media:  Reference{URI: "gs://never-activated", ContentType: "video/mp4"},
		Prompt: "hi",
		Model:  "m",
	})
	require.ErrorIs(t, err, ErrPreconditionNotReady)
	assert.Contains(t, err.Error(), "not in an ACTIVE state")
}

func TestGenerateClassifiesUnknownModel(t *testing.T) {
	gen := &fakeGenerator{err: &RemoteError{Code: 404, Status: "NOT_FOUND", Message: "models/gemini-0 is not found: model not found"}}
	w := newTestWorkflow(&fakeFiles{}, gen)

	_, err := w.Generate(context.Background(), GenerationRequest{
		Media:  Reference{URI: "gs://x", ContentType: "video/mp4"},
		Prompt: "hi",
		Model:  "gemini-0",
	})
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), `"gemini-0"`)
}
