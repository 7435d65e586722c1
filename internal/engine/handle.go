package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Model names understood by the sidecar's unload endpoint.
const (
	ModelRecognizer = "recognizer"
	ModelAligner    = "aligner"
	ModelDiarizer   = "diarizer"
)

// Handle serializes access to the engine. The sidecar keeps at most one
// model family resident, so jobs must take turns; a second job's Acquire
// blocks until the first releases.
type Handle struct {
	client *Client
	sem    chan struct{}
}

var (
	handleOnce sync.Once
	handle     *Handle
)

// SharedHandle returns the process-wide handle, creating it on first call.
// Later calls ignore the URL argument.
func SharedHandle(baseURL string) *Handle {
	handleOnce.Do(func() {
		handle = NewHandle(NewClient(baseURL))
	})
	return handle
}

// NewHandle wraps a client in an exclusive-access handle.
func NewHandle(client *Client) *Handle {
	return &Handle{
		client: client,
		sem:    make(chan struct{}, 1),
	}
}

// Acquire blocks until the engine is free or ctx is done. On success the
// caller must Release.
func (h *Handle) Acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the engine for the next job.
func (h *Handle) Release() {
	select {
	case <-h.sem:
	default:
		logrus.Warn("[engine] release without acquire")
	}
}

// Client returns the underlying HTTP client.
func (h *Handle) Client() *Client {
	return h.client
}

// UnloadRecognizer asks the sidecar to drop the recognition model. Failures
// only cost memory on the sidecar, so they are logged and swallowed.
func (h *Handle) UnloadRecognizer(ctx context.Context) {
	h.unload(ctx, ModelRecognizer)
}

// UnloadAligner drops the alignment model.
func (h *Handle) UnloadAligner(ctx context.Context) {
	h.unload(ctx, ModelAligner)
}

// UnloadDiarizer drops the diarization model.
func (h *Handle) UnloadDiarizer(ctx context.Context) {
	h.unload(ctx, ModelDiarizer)
}

func (h *Handle) unload(ctx context.Context, model string) {
	if err := h.client.Unload(ctx, model); err != nil {
		logrus.Warnf("[engine] unload %s: %v", model, err)
	}
}
