package worker

import (
	"bytes"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var _ asynq.Logger = (*AsynqLogger)(nil)

func TestAsynqLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := NewAsynqLogger(zerolog.New(&buf))

	l.Warn("redis ", "unreachable")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"component":"asynq"`)
	assert.Contains(t, buf.String(), `"message":"redis unreachable"`)
}
