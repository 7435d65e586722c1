// Package pipeline runs one transcription job end to end: decode, chunk,
// recognize, reassemble, align, diarize, format.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/media"
	"github.com/longscribe/backend/internal/progress"
	"github.com/longscribe/backend/internal/subtitle"
	"github.com/longscribe/backend/internal/timeline"
	"github.com/longscribe/backend/internal/vad"
)

// Options are the per-job knobs from the submission request.
type Options struct {
	Language    string
	Strategy    chunk.Strategy
	Diarize     bool
	MinSpeakers int
	MaxSpeakers int
	Dialect     subtitle.Dialect
}

// Config holds the pipeline's tuning, shared across jobs.
type Config struct {
	Chunk              chunk.Params
	Align              bool
	VADAggressiveness  int
	VADMinSpeech       float64
	VADMinSilence      float64
	SilenceMinDuration float64
	SilenceNoiseDB     int
}

// Result is everything a succeeded job reports.
type Result struct {
	Segments            []timeline.Segment `json:"segments"`
	WordSubtitleText    string             `json:"word_subtitle_text"`
	SegmentSubtitleText string             `json:"segment_subtitle_text"`
	PlainText           string             `json:"plain_text"`
	Duration            float64            `json:"duration"`
	NumChunks           int                `json:"num_chunks"`
	ChunksFailed        int                `json:"chunks_failed"`
	ChunkingStrategy    string             `json:"chunking_strategy"`
	ProcessingTime      float64            `json:"processing_time"`
	Language            string             `json:"language"`
	AlignmentRan        bool               `json:"alignment_ran"`
	DiarizationRan      bool               `json:"diarization_ran"`
}

// Pipeline wires the stages together. The handle may be nil when the
// recognizer/aligner/diarizer are supplied directly (tests do this); then no
// engine locking or model unloading happens.
type Pipeline struct {
	cfg        Config
	handle     *engine.Handle
	recognizer engine.Recognizer
	aligner    engine.Aligner
	diarizer   engine.Diarizer
	detector   *vad.Adapter
}

// New builds the production pipeline on top of the shared engine handle.
func New(cfg Config, handle *engine.Handle) *Pipeline {
	client := handle.Client()
	return &Pipeline{
		cfg:        cfg,
		handle:     handle,
		recognizer: client,
		aligner:    client,
		diarizer:   client,
		detector: vad.NewAdapter(vad.NewWebRTC(cfg.VADAggressiveness),
			cfg.VADMinSpeech, cfg.VADMinSilence),
	}
}

// decoded is the in-memory form of the source audio.
type decoded struct {
	samples    []int16
	sampleRate int
	duration   float64
	wavPath    string
}

// Run executes the whole pipeline for one source file. Temp artifacts are
// removed on every exit path.
func (p *Pipeline) Run(ctx context.Context, srcPath string, opts Options, reporter *progress.Reporter) (*Result, error) {
	reporter.Report(progress.StageDecoding, 2, "probing source")
	info, err := media.Probe(srcPath)
	if err != nil {
		return nil, fmt.Errorf("probe source: %w", err)
	}

	reporter.Report(progress.StageDecoding, 5, "decoding audio")
	wavPath, err := media.ExtractAudio(ctx, srcPath)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	defer os.Remove(wavPath)

	samples, sampleRate, err := media.DecodeWAV(wavPath)
	if err != nil {
		return nil, fmt.Errorf("read decoded audio: %w", err)
	}

	duration := info.Duration
	if duration <= 0 {
		duration = float64(len(samples)) / float64(sampleRate)
	}

	return p.process(ctx, decoded{
		samples:    samples,
		sampleRate: sampleRate,
		duration:   duration,
		wavPath:    wavPath,
	}, opts, reporter)
}

func (p *Pipeline) process(ctx context.Context, audio decoded, opts Options, reporter *progress.Reporter) (*Result, error) {
	started := time.Now()

	strategy := opts.Strategy
	if strategy == "" || strategy == chunk.StrategyAuto {
		strategy = chunk.Select(audio.duration)
	}
	logrus.Infof("[pipeline] %.1fs of audio, strategy %s", audio.duration, strategy)

	reporter.Report(progress.StageChunking, 12, "building chunks")
	chunks, err := p.buildChunks(ctx, audio, strategy)
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}

	if p.handle != nil {
		if err := p.handle.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("acquire engine: %w", err)
		}
		defer p.handle.Release()
	}

	workDir, err := os.MkdirTemp("", "longscribe-chunks-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	reporter.Report(progress.StageTranscription, 20, "transcribing")
	orch := NewOrchestrator(p.recognizer, reporter, audio.samples, audio.sampleRate, workDir)
	it := orch.Run(ctx, chunks, opts.Language)

	var results []ChunkResult
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		results = append(results, r)
	}
	if it.Failed() == len(chunks) && len(chunks) > 0 {
		return nil, fmt.Errorf("recognition failed on all %d chunks", len(chunks))
	}
	if p.handle != nil {
		p.handle.UnloadRecognizer(ctx)
	}

	segments := Reassemble(results)

	alignmentRan := false
	if p.cfg.Align && p.aligner != nil && len(segments) > 0 {
		reporter.Report(progress.StageAlignment, 82, "aligning words")
		aligned, err := p.aligner.Align(ctx, audio.wavPath, it.Language(), segments)
		if err != nil {
			logrus.Warnf("[pipeline] alignment failed, continuing without word timings: %v", err)
		} else {
			segments = aligned
			alignmentRan = true
		}
		if p.handle != nil {
			p.handle.UnloadAligner(ctx)
		}
	}

	diarizationRan := false
	if opts.Diarize && p.diarizer != nil && len(segments) > 0 {
		reporter.Report(progress.StageDiarization, 86, "identifying speakers")
		turns, err := p.diarizer.Diarize(ctx, audio.wavPath, engine.DiarizeOptions{
			MinSpeakers: opts.MinSpeakers,
			MaxSpeakers: opts.MaxSpeakers,
		})
		if err != nil {
			logrus.Warnf("[pipeline] diarization failed, continuing without speakers: %v", err)
		} else {
			AssignSpeakers(segments, turns)
			diarizationRan = true
		}
		if p.handle != nil {
			p.handle.UnloadDiarizer(ctx)
		}
	}

	reporter.Report(progress.StageFormatting, 92, "formatting output")
	final := toTimeline(segments)
	dialect := opts.Dialect
	if dialect == "" {
		dialect = subtitle.DialectSRT
	}

	result := &Result{
		Segments:            final,
		WordSubtitleText:    subtitle.Render(subtitle.WordCues(final), dialect),
		SegmentSubtitleText: subtitle.Render(subtitle.SegmentCues(final), dialect),
		PlainText:           timeline.PlainText(final),
		Duration:            audio.duration,
		NumChunks:           len(chunks),
		ChunksFailed:        it.Failed(),
		ChunkingStrategy:    string(strategy),
		ProcessingTime:      time.Since(started).Seconds(),
		Language:            it.Language(),
		AlignmentRan:        alignmentRan,
		DiarizationRan:      diarizationRan,
	}
	reporter.Report(progress.StageFormatting, 100, "done")
	return result, nil
}

func (p *Pipeline) buildChunks(ctx context.Context, audio decoded, strategy chunk.Strategy) ([]chunk.Chunk, error) {
	builder, err := chunk.ForStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx, p.chunkSource(audio, strategy), p.cfg.Chunk)
}

// chunkSource assembles the inputs a builder needs. Every cut-placing
// strategy gets speech intervals so cuts snap away from speech edges; the
// silence strategy additionally gets the on-demand silence probe.
func (p *Pipeline) chunkSource(audio decoded, strategy chunk.Strategy) chunk.Source {
	src := chunk.Source{TotalDuration: audio.duration}
	switch strategy {
	case chunk.StrategyVAD, chunk.StrategyTime, chunk.StrategySilence:
		if p.detector != nil {
			src.Speech = p.detector.SpeechIntervals(audio.samples, audio.sampleRate)
		}
	}
	if strategy == chunk.StrategySilence {
		src.Silences = func(ctx context.Context) ([]timeline.Interval, error) {
			return media.DetectSilence(ctx, audio.wavPath, p.cfg.SilenceMinDuration, p.cfg.SilenceNoiseDB)
		}
	}
	return src
}

func toTimeline(raw []engine.RawSegment) []timeline.Segment {
	segments := make([]timeline.Segment, len(raw))
	for i, r := range raw {
		segments[i] = timeline.Segment{
			Start:   r.Start,
			End:     r.End,
			Text:    r.Text,
			Words:   r.Words,
			Speaker: r.Speaker,
		}
	}
	return segments
}
