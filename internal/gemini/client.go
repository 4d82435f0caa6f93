// Package gemini adapts the Gemini Files and Models APIs to the media
// package's FileService and Generator interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/dharsanguruparan/VidAI/internal/media"
)

var tracer = otel.Tracer("github.com/dharsanguruparan/VidAI/internal/gemini")

// ErrMissingAPIKey is returned by New when no credential was resolved.
var ErrMissingAPIKey = errors.New("gemini: api key is empty")

// Client implements media.FileService and media.Generator.
type Client struct {
	client *genai.Client
	log    zerolog.Logger
}

// New creates a Gemini API client for the given key.
func New(ctx context.Context, apiKey string, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &Client{
		client: c,
		log:    log.With().Str("component", "gemini").Logger(),
	}, nil
}

// Upload streams the video to the Files API.
func (c *Client) Upload(ctx context.Context, req media.UploadRequest) (*media.Job, error) {
	ctx, span := tracer.Start(ctx, "gemini.Files.Upload")
	defer span.End()

	f, err := c.client.Files.Upload(ctx, req.Body, &genai.UploadFileConfig{
		MIMEType:    VendorMIMEType(req.ContentType),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapError(err)
	}
	span.SetAttributes(attribute.String("gemini.file", f.Name))
	c.log.Debug().Str("file", f.Name).Str("state", string(f.State)).Msg("file uploaded")
	return toJob(f), nil
}

// Status fetches the current state of an uploaded file.
func (c *Client) Status(ctx context.Context, id string) (*media.Job, error) {
	ctx, span := tracer.Start(ctx, "gemini.Files.Get", trace.WithAttributes(attribute.String("gemini.file", id)))
	defer span.End()

	f, err := c.client.Files.Get(ctx, id, nil)
	if err != nil {
		span.RecordError(err)
		return nil, wrapError(err)
	}
	return toJob(f), nil
}

// GenerateContent sends a single user turn holding the file reference and
// the prompt.
func (c *Client) GenerateContent(ctx context.Context, req media.GenerationRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini.Models.GenerateContent", trace.WithAttributes(attribute.String("gemini.model", req.Model)))
	defer span.End()

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, userTurn(req), nil)
	if err != nil {
		span.RecordError(err)
		return "", wrapError(err)
	}
	return resp.Text(), nil
}

func userTurn(req media.GenerationRequest) []*genai.Content {
	return []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{FileData: &genai.FileData{MIMEType: req.Media.ContentType, FileURI: req.Media.URI}},
			{Text: req.Prompt},
		},
	}}
}

func toJob(f *genai.File) *media.Job {
	if f == nil {
		return nil
	}
	job := &media.Job{
		ID:          f.Name,
		State:       toState(f.State),
		URI:         f.URI,
		ContentType: f.MIMEType,
		DisplayName: f.DisplayName,
	}
	if f.Error != nil {
		job.Reason = f.Error.Message
	}
	return job
}

func toState(s genai.FileState) media.JobState {
	switch s {
	case genai.FileStateActive:
		return media.JobActive
	case genai.FileStateFailed:
		return media.JobFailed
	default:
		return media.JobPending
	}
}

// wrapError keeps the SDK's status code next to its message.
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &media.RemoteError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Error()}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &media.RemoteError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Error()}
	}
	return err
}

var vendorAliases = map[string]string{
	"video/quicktime": "video/mov",
	"video/x-msvideo": "video/avi",
	"video/msvideo":   "video/avi",
	"video/x-ms-wmv":  "video/wmv",
	"video/x-ms-asf":  "video/wmv",
	"video/mpg":       "video/mpeg",
}

// VendorMIMEType maps sniffed MIME names onto the names the Files API
// accepts. Parameters such as "; codecs=..." are dropped.
func VendorMIMEType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if alias, ok := vendorAliases[ct]; ok {
		return alias
	}
	return ct
}
