package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/media"
	"github.com/longscribe/backend/internal/progress"
	"github.com/longscribe/backend/internal/timeline"
	"github.com/longscribe/backend/internal/vad"
)

// fakeRecognizer answers sequential recognition calls from a script. Calls
// whose index appears in failOn return an error.
type fakeRecognizer struct {
	calls     int
	failOn    map[int]bool
	languages []string // languages received, in call order
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audioPath, language string) (*engine.RecognizeResult, error) {
	call := f.calls
	f.calls++
	f.languages = append(f.languages, language)
	if f.failOn[call] {
		return nil, errors.New("engine crashed on this chunk")
	}
	return &engine.RecognizeResult{
		Language: "en",
		Segments: []engine.RawSegment{
			{Start: 0.5, End: 4.5, Text: fmt.Sprintf("chunk %d speech", call+1)},
		},
	}, nil
}

type fakeAligner struct {
	err    error
	called bool
}

func (f *fakeAligner) Align(ctx context.Context, audioPath, language string, segments []engine.RawSegment) ([]engine.RawSegment, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return segments, nil
}

type fakeDiarizer struct {
	turns  []engine.SpeakerTurn
	err    error
	called bool
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string, opts engine.DiarizeOptions) ([]engine.SpeakerTurn, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.turns, nil
}

// testAudio builds 50 seconds of silence plus a throwaway WAV on disk so the
// align/diarize fakes have a path to ignore.
func testAudio(t *testing.T) decoded {
	t.Helper()
	const rate = media.WhisperSampleRate
	samples := make([]int16, 50*rate)
	path := t.TempDir() + "/full.wav"
	if err := media.WriteWAV(path, samples[:rate], rate); err != nil {
		t.Fatal(err)
	}
	return decoded{samples: samples, sampleRate: rate, duration: 50, wavPath: path}
}

func testPipeline(rec engine.Recognizer, al engine.Aligner, di engine.Diarizer) *Pipeline {
	return &Pipeline{
		cfg: Config{
			Chunk: chunk.Params{Target: 10, Overlap: 0},
			Align: al != nil,
		},
		recognizer: rec,
		aligner:    al,
		diarizer:   di,
	}
}

type stubDetector struct {
	intervals []timeline.Interval
}

func (s *stubDetector) Detect(samples []int16, sampleRate int) ([]timeline.Interval, error) {
	return s.intervals, nil
}

func TestChunkSourcePerStrategy(t *testing.T) {
	p := testPipeline(&fakeRecognizer{}, nil, nil)
	p.detector = vad.NewAdapter(&stubDetector{
		intervals: []timeline.Interval{{Start: 1, End: 3}},
	}, 0.1, 0.1)
	audio := testAudio(t)

	for _, strategy := range []chunk.Strategy{chunk.StrategyVAD, chunk.StrategyTime, chunk.StrategySilence} {
		src := p.chunkSource(audio, strategy)
		if len(src.Speech) == 0 {
			t.Errorf("strategy %s: no speech intervals, cut snapping cannot work", strategy)
		}
	}

	src := p.chunkSource(audio, chunk.StrategySilence)
	if src.Silences == nil {
		t.Error("silence strategy: no silence probe wired")
	}
	if src = p.chunkSource(audio, chunk.StrategyNone); len(src.Speech) != 0 || src.Silences != nil {
		t.Error("whole-file strategy should not pay for speech or silence analysis")
	}
}

func TestProcessSurvivesChunkFailure(t *testing.T) {
	// Chunk 2 of 5 fails; the job still succeeds and the metadata says so.
	rec := &fakeRecognizer{failOn: map[int]bool{1: true}}
	p := testPipeline(rec, nil, nil)

	reporter := progress.NewReporter("job", "", nil)
	result, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime}, reporter)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.NumChunks != 5 {
		t.Fatalf("num chunks = %d, want 5", result.NumChunks)
	}
	if result.ChunksFailed != 1 {
		t.Errorf("chunks failed = %d, want 1", result.ChunksFailed)
	}
	if strings.Contains(result.PlainText, "chunk 2 speech") {
		t.Error("failed chunk's text should be absent")
	}
	for _, want := range []string{"chunk 1 speech", "chunk 3 speech", "chunk 5 speech"} {
		if !strings.Contains(result.PlainText, want) {
			t.Errorf("plain text missing %q: %q", want, result.PlainText)
		}
	}
}

func TestProcessFailsWhenEveryChunkFails(t *testing.T) {
	rec := &fakeRecognizer{failOn: map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true}}
	p := testPipeline(rec, nil, nil)

	_, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime},
		progress.NewReporter("job", "", nil))
	if err == nil {
		t.Fatal("expected failure when no chunk transcribes")
	}
}

func TestProcessPinsDetectedLanguage(t *testing.T) {
	rec := &fakeRecognizer{}
	p := testPipeline(rec, nil, nil)

	result, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime},
		progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Language != "en" {
		t.Errorf("result language = %q, want en", result.Language)
	}
	if rec.languages[0] != "" {
		t.Errorf("first call language = %q, want empty (detect)", rec.languages[0])
	}
	for i, lang := range rec.languages[1:] {
		if lang != "en" {
			t.Errorf("call %d language = %q, want pinned en", i+1, lang)
		}
	}
}

func TestProcessDiarizationFailureIsNonFatal(t *testing.T) {
	rec := &fakeRecognizer{}
	di := &fakeDiarizer{err: errors.New("pyannote out of memory")}
	p := testPipeline(rec, nil, di)

	result, err := p.process(context.Background(), testAudio(t), Options{
		Strategy: chunk.StrategyTime,
		Diarize:  true,
	}, progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !di.called {
		t.Fatal("diarizer was never invoked")
	}
	if result.DiarizationRan {
		t.Error("metadata claims diarization ran")
	}
	for i, seg := range result.Segments {
		if seg.Speaker != "" {
			t.Errorf("segment %d speaker = %q, want empty", i, seg.Speaker)
		}
	}
}

func TestProcessDiarizationAssignsSpeakers(t *testing.T) {
	rec := &fakeRecognizer{}
	di := &fakeDiarizer{turns: []engine.SpeakerTurn{{Start: 0, End: 50, Speaker: "SPEAKER_00"}}}
	p := testPipeline(rec, nil, di)

	result, err := p.process(context.Background(), testAudio(t), Options{
		Strategy: chunk.StrategyTime,
		Diarize:  true,
	}, progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.DiarizationRan {
		t.Error("metadata should record diarization ran")
	}
	for i, seg := range result.Segments {
		if seg.Speaker != "SPEAKER_00" {
			t.Errorf("segment %d speaker = %q", i, seg.Speaker)
		}
	}
}

func TestProcessAlignmentFailureIsNonFatal(t *testing.T) {
	rec := &fakeRecognizer{}
	al := &fakeAligner{err: errors.New("alignment model missing")}
	p := testPipeline(rec, al, nil)

	result, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime},
		progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !al.called {
		t.Fatal("aligner was never invoked")
	}
	if result.AlignmentRan {
		t.Error("metadata claims alignment ran")
	}
}

func TestOrchestratorOffsetsTimestamps(t *testing.T) {
	rec := &fakeRecognizer{}
	p := testPipeline(rec, nil, nil)

	result, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime},
		progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// Chunks tile at [0,10), [10,20), ... and each fake segment starts 0.5s
	// into its chunk.
	for i, seg := range result.Segments {
		want := float64(i)*10 + 0.5
		if seg.Start != want {
			t.Errorf("segment %d start = %v, want %v", i, seg.Start, want)
		}
	}
}

func TestProcessRendersSubtitles(t *testing.T) {
	rec := &fakeRecognizer{}
	p := testPipeline(rec, nil, nil)

	result, err := p.process(context.Background(), testAudio(t), Options{Strategy: chunk.StrategyTime},
		progress.NewReporter("job", "", nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.HasPrefix(result.SegmentSubtitleText, "1\n00:00:00,500 --> 00:00:04,500\nchunk 1 speech\n\n") {
		t.Errorf("segment subtitles = %q", result.SegmentSubtitleText)
	}
	if result.ChunkingStrategy != "time" {
		t.Errorf("strategy = %q, want time", result.ChunkingStrategy)
	}
}
