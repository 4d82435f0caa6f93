package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure of the upload or conversation workflow.
type Kind uint8

const (
	KindUnclassified Kind = iota
	KindMalformedResponse
	KindAuthenticationInvalid
	KindRemoteProcessingFailed
	KindActivationTimeout
	KindPollingExhausted
	KindPreconditionNotReady
	KindQuotaExceeded
	KindModelUnavailable
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnclassified:           "unclassified",
	KindMalformedResponse:      "malformed_response",
	KindAuthenticationInvalid:  "authentication_invalid",
	KindRemoteProcessingFailed: "remote_processing_failed",
	KindActivationTimeout:      "activation_timeout",
	KindPollingExhausted:       "polling_exhausted",
	KindPreconditionNotReady:   "precondition_not_ready",
	KindQuotaExceeded:          "quota_exceeded",
	KindModelUnavailable:       "model_unavailable",
	KindCanceled:               "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String. Unknown names map to
// KindUnclassified.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnclassified
}

// Op names the remote step that failed.
type Op string

const (
	OpUpload   Op = "upload"
	OpPoll     Op = "poll"
	OpGenerate Op = "generate"
)

// Error is a classified workflow failure. Msg is meant for end users and
// always includes the vendor text when there was one; Err keeps the original
// error for errors.Is/As.
type Error struct {
	Kind Kind
	Op   Op
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind-only sentinels below, so callers can write
// errors.Is(err, media.ErrQuotaExceeded).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Op != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnclassified           = &Error{Kind: KindUnclassified}
	ErrMalformedResponse      = &Error{Kind: KindMalformedResponse}
	ErrAuthenticationInvalid  = &Error{Kind: KindAuthenticationInvalid}
	ErrRemoteProcessingFailed = &Error{Kind: KindRemoteProcessingFailed}
	ErrActivationTimeout      = &Error{Kind: KindActivationTimeout}
	ErrPollingExhausted       = &Error{Kind: KindPollingExhausted}
	ErrPreconditionNotReady   = &Error{Kind: KindPreconditionNotReady}
	ErrQuotaExceeded          = &Error{Kind: KindQuotaExceeded}
	ErrModelUnavailable       = &Error{Kind: KindModelUnavailable}
	ErrCanceled               = &Error{Kind: KindCanceled}
)

// KindOf returns the kind of a classified error, KindUnclassified otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// RemoteError carries the machine-readable parts of a vendor failure.
// Adapters return it so Classify can look at codes before message text.
type RemoteError struct {
	Code    int
	Status  string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func newError(kind Kind, op Op, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Classify maps a remote failure onto the local taxonomy. Errors that are
// already classified pass through unchanged. The substring rules match the
// vendor's human-readable text and are the fallback when no code is present.
func Classify(op Op, model string, err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindCanceled, op, err, "Operation canceled: %s", msg)
	}

	var code int
	var status string
	var remote *RemoteError
	if errors.As(err, &remote) {
		code, status = remote.Code, remote.Status
	}

	switch {
	case authFailure(msg, code, status):
		return newError(KindAuthenticationInvalid, op, err,
			"API Key is invalid or missing. Please ensure it is correctly configured in the environment. Original error: %s", msg)
	case notActive(msg, status):
		return newError(KindPreconditionNotReady, op, err,
			"Failed to use video: File is not ready. This might indicate an issue with the upload or processing status. %s", msg)
	case quotaExceeded(msg, code, status):
		return newError(KindQuotaExceeded, op, err,
			"API request failed due to quota limits. Please check your Gemini API plan and usage. Original error: %s", msg)
	case modelUnavailable(msg):
		return newError(KindModelUnavailable, op, err,
			"The model %q may not be available or you lack permissions. Check model name and API key permissions. Original error: %s", model, msg)
	}

	switch op {
	case OpUpload:
		return newError(KindUnclassified, op, err, "Failed to initiate video upload: %s", msg)
	case OpPoll:
		return newError(KindUnclassified, op, err, "Failed to get file status: %s", msg)
	default:
		return newError(KindUnclassified, op, err, "Failed to get response from AI: %s", msg)
	}
}

func authFailure(msg string, code int, status string) bool {
	if code == 401 || status == "UNAUTHENTICATED" {
		return true
	}
	return strings.Contains(msg, "API key not valid") || strings.Contains(msg, "api_key")
}

func notActive(msg, status string) bool {
	if !strings.Contains(msg, "not in an ACTIVE state") {
		return false
	}
	return status == "FAILED_PRECONDITION" || strings.Contains(msg, "FAILED_PRECONDITION")
}

func quotaExceeded(msg string, code int, status string) bool {
	if code == 429 || status == "RESOURCE_EXHAUSTED" {
		return true
	}
	return strings.Contains(strings.ToLower(msg), "quota")
}

func modelUnavailable(msg string) bool {
	return strings.Contains(msg, "model") &&
		(strings.Contains(msg, "permission denied") || strings.Contains(msg, "not found"))
}
