// Package progress reports job progress to an optional callback URL and to
// the local job store. Callback delivery is fire and forget.
package progress

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stage names used in progress updates.
const (
	StageDecoding      = "decoding"
	StageChunking      = "chunking"
	StageTranscription = "transcription"
	StageAlignment     = "alignment"
	StageDiarization   = "diarization"
	StageFormatting    = "formatting"
)

// Chunk transcription occupies this slice of the overall progress scale.
const (
	transcriptionStart = 20
	transcriptionEnd   = 80
)

// Update is one progress report.
type Update struct {
	JobID       string       `json:"job_id"`
	Status      string       `json:"status"`
	Progress    int          `json:"progress"`
	Stage       string       `json:"stage"`
	Message     string       `json:"message,omitempty"`
	SegmentInfo *SegmentInfo `json:"segment_info,omitempty"`
}

// SegmentInfo accompanies per-chunk updates.
type SegmentInfo struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Sink receives updates locally, typically the job queue.
type Sink func(jobID string, progress int, stage string)

// Reporter tracks a single job's progress. Progress never goes backwards.
type Reporter struct {
	jobID       string
	callbackID  string
	callbackURL string
	sink        Sink
	client      *http.Client

	mu   sync.Mutex
	last int
}

// NewReporter creates a reporter for one job. callbackURL and sink may each
// be empty.
func NewReporter(jobID, callbackURL string, sink Sink) *Reporter {
	return &Reporter{
		jobID:       jobID,
		callbackID:  jobID,
		callbackURL: callbackURL,
		sink:        sink,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// SetCallbackID overrides the job identity carried in callback payloads.
// Submitters may track the job under their own ID; the sink keeps seeing the
// queue's ID. Empty is ignored.
func (r *Reporter) SetCallbackID(id string) {
	if id != "" {
		r.callbackID = id
	}
}

// Report records progress for a stage. Values below the current progress are
// clamped up so the reported number never decreases.
func (r *Reporter) Report(stage string, percent int, message string) {
	r.send(stage, percent, message, nil)
}

// ReportChunk records completion of chunk current out of total, scaled into
// the transcription band of the overall progress.
func (r *Reporter) ReportChunk(current, total int, message string) {
	percent := transcriptionStart
	if total > 0 {
		percent += current * (transcriptionEnd - transcriptionStart) / total
	}
	r.send(StageTranscription, percent, message, &SegmentInfo{Current: current, Total: total})
}

func (r *Reporter) send(stage string, percent int, message string, info *SegmentInfo) {
	r.mu.Lock()
	if percent < r.last {
		percent = r.last
	}
	r.last = percent
	r.mu.Unlock()

	if r.sink != nil {
		r.sink(r.jobID, percent, stage)
	}
	if r.callbackURL == "" {
		return
	}
	update := Update{
		JobID:       r.callbackID,
		Status:      "processing",
		Progress:    percent,
		Stage:       stage,
		Message:     message,
		SegmentInfo: info,
	}
	go r.deliver(update)
}

// deliver posts one update. A dead callback endpoint must never slow down or
// fail the job, so errors are logged at debug level and dropped.
func (r *Reporter) deliver(update Update) {
	body, err := json.Marshal(update)
	if err != nil {
		logrus.Debugf("[progress] marshal update: %v", err)
		return
	}
	resp, err := r.client.Post(r.callbackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logrus.Debugf("[progress] callback %s: %v", r.callbackURL, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		logrus.Debugf("[progress] callback %s: status %d", r.callbackURL, resp.StatusCode)
	}
}
