// Package media turns a raw video and a remote file-processing API into a
// stable reference that generation calls can point at. The remote side is
// reached through the FileService and Generator interfaces so the workflow
// never depends on a particular SDK.
package media

import (
	"context"
	"io"
)

// JobState is the processing state reported by the ingestion endpoint.
type JobState string

const (
	JobPending JobState = "PENDING"
	JobActive  JobState = "ACTIVE"
	JobFailed  JobState = "FAILED"
)

// UploadRequest is a pending upload. Body is consumed by the ingestion call.
type UploadRequest struct {
	Body        io.Reader
	ContentType string
	DisplayName string
}

// Job is the server-assigned handle of an ingestion job as of the last
// response. URI and ContentType are only meaningful once State is JobActive.
type Job struct {
	ID          string
	State       JobState
	URI         string
	ContentType string
	DisplayName string
	// Reason carries the remote error detail when State is JobFailed.
	Reason string
}

// Reference points at processed media and is the required input of every
// generation call. It is a value type; nothing in this package mutates one
// after it is returned.
type Reference struct {
	URI         string `json:"uri"`
	ContentType string `json:"contentType"`
	DisplayName string `json:"displayName"`
}

// Valid reports whether the reference can be sent to the generation endpoint.
func (r Reference) Valid() bool {
	return r.URI != "" && r.ContentType != ""
}

// GenerationRequest is one conversational turn.
type GenerationRequest struct {
	Media  Reference
	Prompt string
	Model  string
}

// ProgressFunc receives upload progress in percent, [0,100].
type ProgressFunc func(percent float64)

// FileService is the ingestion and job-status side of the remote API.
type FileService interface {
	Upload(ctx context.Context, req UploadRequest) (*Job, error)
	Status(ctx context.Context, id string) (*Job, error)
}

// Generator is the content-generation side of the remote API.
type Generator interface {
	GenerateContent(ctx context.Context, req GenerationRequest) (string, error)
}
