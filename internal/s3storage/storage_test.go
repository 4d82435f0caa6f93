package s3storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidAI/internal/config"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

var _ storage.Videos = (*Storage)(nil)

func TestPresignURLIsOffline(t *testing.T) {
	s, err := New(&config.Config{
		S3Endpoint:  "localhost:9000",
		S3AccessKey: "minioadmin",
		S3SecretKey: "minioadmin",
		S3Region:    "us-east-1",
		VideoBucket: "vidai-videos",
	})
	require.NoError(t, err)

	u, err := s.PresignURL(context.Background(), "abc.mp4", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/vidai-videos/abc.mp4?"), u)
	assert.Contains(t, u, "X-Amz-Expires=300")
}
