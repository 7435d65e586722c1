// Package engine talks to the speech engine sidecar. The sidecar holds the
// recognition, alignment and diarization models; only one job may use it at
// a time, which Handle enforces process-wide.
package engine

import (
	"context"

	"github.com/longscribe/backend/internal/timeline"
)

// RawSegment is one transcript unit as returned by the engine, with
// timestamps local to the audio it was given.
type RawSegment struct {
	Start   float64         `json:"start"`
	End     float64         `json:"end"`
	Text    string          `json:"text"`
	Words   []timeline.Word `json:"words,omitempty"`
	Speaker string          `json:"speaker,omitempty"`
}

// SpeakerTurn is one contiguous stretch attributed to a single speaker.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// RecognizeResult carries the segments for one audio chunk plus the language
// the engine detected (or was told to use).
type RecognizeResult struct {
	Language string       `json:"language"`
	Segments []RawSegment `json:"segments"`
}

// Recognizer turns an audio file into raw transcript segments. An empty
// language means the engine should detect it.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath, language string) (*RecognizeResult, error)
}

// Aligner refines segment timestamps to word level.
type Aligner interface {
	Align(ctx context.Context, audioPath, language string, segments []RawSegment) ([]RawSegment, error)
}

// DiarizeOptions bounds the speaker search. Zero values leave the bound to
// the engine.
type DiarizeOptions struct {
	MinSpeakers int `json:"min_speakers,omitempty"`
	MaxSpeakers int `json:"max_speakers,omitempty"`
}

// Diarizer identifies who speaks when.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, opts DiarizeOptions) ([]SpeakerTurn, error)
}
