// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"

	"github.com/dharsanguruparan/VidAI/internal/media"
)

// SessionStatus describes the lifecycle of one uploaded video.
type SessionStatus string

const (
	StatusQueued     SessionStatus = "queued"
	StatusProcessing SessionStatus = "processing"
	StatusActive     SessionStatus = "active"
	StatusFailed     SessionStatus = "failed"
	StatusCanceled   SessionStatus = "canceled"
)

// Terminal reports whether no further processing will happen.
func (s SessionStatus) Terminal() bool {
	return s == StatusActive || s == StatusFailed || s == StatusCanceled
}

// Session is one video and the conversation held about it. Media is only set
// once the remote file is active.
type Session struct {
	ID          string           `json:"id"`
	FileName    string           `json:"fileName"`
	ContentType string           `json:"contentType"`
	Size        int64            `json:"size"`
	ObjectKey   string           `json:"-"`
	Model       string           `json:"model"`
	Status      SessionStatus    `json:"status"`
	Progress    float64          `json:"progress"`
	Media       *media.Reference `json:"media,omitempty"`
	ErrorKind   string           `json:"errorKind,omitempty"`
	Message     string           `json:"message,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one entry of a session's transcript. IsError marks the
// synthetic reply written when generation failed.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	IsError   bool      `json:"isError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
