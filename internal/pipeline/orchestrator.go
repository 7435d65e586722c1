package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/media"
	"github.com/longscribe/backend/internal/progress"
)

// ChunkResult is one chunk's recognition outcome. Err marks a chunk the
// engine could not transcribe; such chunks contribute no segments.
type ChunkResult struct {
	Chunk    chunk.Chunk
	Segments []engine.RawSegment
	Err      error
}

// Orchestrator feeds chunks to the recognition engine one at a time. The
// engine is an exclusive resource, so there is no parallelism here.
type Orchestrator struct {
	recognizer engine.Recognizer
	reporter   *progress.Reporter
	samples    []int16
	sampleRate int
	workDir    string
}

func NewOrchestrator(recognizer engine.Recognizer, reporter *progress.Reporter, samples []int16, sampleRate int, workDir string) *Orchestrator {
	return &Orchestrator{
		recognizer: recognizer,
		reporter:   reporter,
		samples:    samples,
		sampleRate: sampleRate,
		workDir:    workDir,
	}
}

// Run returns an iterator over chunk results. Recognition happens lazily, one
// chunk per Next call, so a caller can stop early without paying for the
// rest. When language is empty the engine detects it on the first chunk and
// the detected language is pinned for the remainder.
func (o *Orchestrator) Run(ctx context.Context, chunks []chunk.Chunk, language string) *Iterator {
	return &Iterator{
		orch:     o,
		ctx:      ctx,
		chunks:   chunks,
		language: language,
	}
}

// Iterator yields one ChunkResult per chunk, in chunk order.
type Iterator struct {
	orch     *Orchestrator
	ctx      context.Context
	chunks   []chunk.Chunk
	language string
	pos      int
	failed   int
}

// Next recognizes the next chunk. The second return is false when all chunks
// are done. A chunk-level recognition failure is logged, counted and returned
// with Err set and zero segments; it does not end iteration.
func (it *Iterator) Next() (ChunkResult, bool) {
	if it.pos >= len(it.chunks) {
		return ChunkResult{}, false
	}
	c := it.chunks[it.pos]
	it.pos++

	result := ChunkResult{Chunk: c}
	segments, language, err := it.orch.recognizeChunk(it.ctx, c, it.language)
	if err != nil {
		logrus.Errorf("[pipeline] chunk %d [%.1f, %.1f] failed: %v", c.ID, c.Interval.Start, c.Interval.End, err)
		it.failed++
		result.Err = err
	} else {
		if it.language == "" {
			it.language = language
			logrus.Infof("[pipeline] detected language %q, pinned for remaining chunks", language)
		}
		result.Segments = segments
	}

	if it.orch.reporter != nil {
		it.orch.reporter.ReportChunk(it.pos, len(it.chunks),
			fmt.Sprintf("transcribed chunk %d/%d", it.pos, len(it.chunks)))
	}
	return result, true
}

// Language returns the pinned language, empty until the first successful
// chunk when auto-detecting.
func (it *Iterator) Language() string { return it.language }

// Failed returns how many chunks errored so far.
func (it *Iterator) Failed() int { return it.failed }

// recognizeChunk slices the decoded audio to the chunk interval, writes it to
// a scratch WAV, and asks the engine for segments. Timestamps come back
// chunk-local and are offset to the global timeline before returning.
func (o *Orchestrator) recognizeChunk(ctx context.Context, c chunk.Chunk, language string) ([]engine.RawSegment, string, error) {
	slice := media.SliceSamples(o.samples, o.sampleRate, c.Interval.Start, c.Interval.End)
	path := filepath.Join(o.workDir, fmt.Sprintf("chunk-%04d.wav", c.ID))
	if err := media.WriteWAV(path, slice, o.sampleRate); err != nil {
		return nil, "", fmt.Errorf("write chunk audio: %w", err)
	}
	defer os.Remove(path)

	result, err := o.recognizer.Recognize(ctx, path, language)
	if err != nil {
		return nil, "", err
	}

	offset := c.Interval.Start
	segments := make([]engine.RawSegment, len(result.Segments))
	for i, seg := range result.Segments {
		seg.Start += offset
		seg.End += offset
		for j := range seg.Words {
			seg.Words[j].Start += offset
			seg.Words[j].End += offset
		}
		segments[i] = seg
	}
	return segments, result.Language, nil
}
