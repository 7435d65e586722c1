package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranscribe JobType = "transcribe"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued transcription task
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	FilePath    string          `json:"file_path"`
	Params      json.RawMessage `json:"params"`
	Progress    int             `json:"progress"` // 0-100
	Stage       string          `json:"stage,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranscribeParams are parameters for a transcription job
type TranscribeParams struct {
	JobID       string `json:"job_id,omitempty"`       // caller's own tracking ID, echoed in callbacks
	Language    string `json:"language,omitempty"`     // ISO code, empty = auto-detect
	Strategy    string `json:"strategy,omitempty"`     // auto|none|vad|time|silence
	Diarize     bool   `json:"diarize,omitempty"`      // enable speaker identification
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"` // progress webhook
	Dialect     string `json:"dialect,omitempty"`      // srt|vtt
}

// Handler processes one job and returns its result document. The context is
// cancelled when the job is cancelled or the queue shuts down.
type Handler func(ctx context.Context, job *Job) (json.RawMessage, error)
