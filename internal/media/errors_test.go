package media

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		err  error
		want Kind
		msg  string
	}{
		{
			name: "invalid key text",
			op:   OpGenerate,
			err:  errors.New("got status: 400 Bad Request. API key not valid. Please pass a valid API key."),
			want: KindAuthenticationInvalid,
			msg:  "API Key is invalid or missing",
		},
		{
			name: "api_key mention",
			op:   OpUpload,
			err:  errors.New("missing api_key parameter"),
			want: KindAuthenticationInvalid,
		},
		{
			name: "unauthenticated status",
			op:   OpGenerate,
			err:  &RemoteError{Code: 401, Status: "UNAUTHENTICATED", Message: "request had invalid credentials"},
			want: KindAuthenticationInvalid,
		},
		{
			name: "file not active",
			op:   OpGenerate,
			err:  errors.New("400 FAILED_PRECONDITION: The File abc is not in an ACTIVE state and usage is not allowed."),
			want: KindPreconditionNotReady,
			msg:  "File is not ready",
		},
		{
			name: "failed precondition without active text",
			op:   OpGenerate,
			err:  &RemoteError{Code: 400, Status: "FAILED_PRECONDITION", Message: "User location is not supported"},
			want: KindUnclassified,
		},
		{
			name: "quota text",
			op:   OpGenerate,
			err:  errors.New("You exceeded your current Quota, please check your plan"),
			want: KindQuotaExceeded,
		},
		{
			name: "rate limited code",
			op:   OpGenerate,
			err:  &RemoteError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Too many requests"},
			want: KindQuotaExceeded,
		},
		{
			name: "model not found",
			op:   OpGenerate,
			err:  errors.New("models/gemini-x is not found for API version v1beta: model not found"),
			want: KindModelUnavailable,
			msg:  `"gemini-x"`,
		},
		{
			name: "model permission denied",
			op:   OpGenerate,
			err:  errors.New("permission denied on model gemini-x"),
			want: KindModelUnavailable,
		},
		{
			name: "generic generate",
			op:   OpGenerate,
			err:  errors.New("internal error"),
			want: KindUnclassified,
			msg:  "Failed to get response from AI: internal error",
		},
		{
			name: "generic upload",
			op:   OpUpload,
			err:  errors.New("connection refused"),
			want: KindUnclassified,
			msg:  "Failed to initiate video upload: connection refused",
		},
		{
			name: "canceled",
			op:   OpPoll,
			err:  fmt.Errorf("get file: %w", context.Canceled),
			want: KindCanceled,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.op, "gemini-x", tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Kind)
			assert.Equal(t, tc.op, got.Op)
			assert.Contains(t, got.Error(), tc.err.Error(), "vendor text must be preserved")
			if tc.msg != "" {
				assert.Contains(t, got.Error(), tc.msg)
			}
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	orig := &Error{Kind: KindActivationTimeout, Op: OpPoll, Msg: "timed out"}
	got := Classify(OpGenerate, "", fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
	assert.Nil(t, Classify(OpGenerate, "", nil))
}

func TestErrorSentinelsAndKindOf(t *testing.T) {
	err := fmt.Errorf("send: %w", &Error{Kind: KindQuotaExceeded, Msg: "quota"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.Equal(t, KindUnclassified, KindOf(errors.New("plain")))
	assert.Equal(t, "quota_exceeded", ErrQuotaExceeded.Error())
}

func TestKindNamesRoundTrip(t *testing.T) {
	for k := KindUnclassified; k <= KindCanceled; k++ {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindUnclassified, ParseKind("nonsense"))
}
