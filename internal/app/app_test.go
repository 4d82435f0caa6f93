package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidAI/internal/config"
)

func TestInitWithoutTracing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDAI_ENABLE_TRACING", "false")
	t.Setenv("VIDAI_MODELS", "gemini-2.5-pro-preview-06-05")
	t.Setenv("VIDAI_DEFAULT_MODEL", "not-listed")

	rt, err := Init(context.Background(), "test")
	require.NoError(t, err)
	defer rt.Close(context.Background())

	assert.Equal(t, "gemini-2.5-pro-preview-06-05", rt.Catalog().Default())
}

func TestNewWorkflowRequiresKey(t *testing.T) {
	cfg := &config.Config{APIKeySources: []string{"GEMINI_API_KEY"}}
	_, err := NewWorkflow(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestRedisClientOpt(t *testing.T) {
	opt := RedisClientOpt(&config.Config{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 3})
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
}
