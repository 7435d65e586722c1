package chunk

import (
	"context"
	"fmt"
	"sort"

	"github.com/longscribe/backend/internal/timeline"
)

// Chunk is a bounded window of the source audio submitted as one unit to the
// recognition engine. Chunks are never mutated after a builder returns them.
type Chunk struct {
	ID       uint32            `json:"id"`
	Interval timeline.Interval `json:"interval"`
}

// Strategy names a chunking algorithm.
type Strategy string

const (
	StrategyAuto    Strategy = "auto"
	StrategyNone    Strategy = "none"
	StrategyVAD     Strategy = "vad"
	StrategyTime    Strategy = "time"
	StrategySilence Strategy = "silence"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAuto, StrategyNone, StrategyVAD, StrategyTime, StrategySilence:
		return Strategy(s), nil
	case "":
		return StrategyAuto, nil
	}
	return "", fmt.Errorf("unknown chunking strategy %q", s)
}

// Select picks a strategy from the total duration. It is consulted only when
// the caller asked for auto; anything at least 30 seconds long gets VAD-based
// cut-and-merge chunking.
func Select(totalDuration float64) Strategy {
	if totalDuration < 30 {
		return StrategyNone
	}
	return StrategyVAD
}

// SilenceFunc lazily probes the source for silence gaps. Only the silence-gap
// builder pays its cost.
type SilenceFunc func(ctx context.Context) ([]timeline.Interval, error)

// Source describes the audio being chunked.
type Source struct {
	TotalDuration float64
	Speech        []timeline.Interval // VAD output; nil when unavailable
	Silences      SilenceFunc         // nil when silence probing is unavailable
}

// Params are shared builder knobs.
type Params struct {
	Target     float64 // target chunk duration, seconds
	Overlap    float64 // overlap margin between consecutive chunks
	SnapRadius float64 // search radius for snapping cuts out of speech
}

const (
	defaultTarget     = 30.0
	defaultOverlap    = 10.0
	defaultSnapRadius = 0.5
)

func (p Params) withDefaults() Params {
	if p.Target <= 0 {
		p.Target = defaultTarget
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.SnapRadius <= 0 {
		p.SnapRadius = defaultSnapRadius
	}
	return p
}

func (p Params) validate() error {
	if p.Overlap >= p.Target {
		return fmt.Errorf("overlap %.1fs must be smaller than target %.1fs", p.Overlap, p.Target)
	}
	return nil
}

// Builder is the common contract of all chunking algorithms.
type Builder interface {
	Build(ctx context.Context, src Source, p Params) ([]Chunk, error)
}

// ForStrategy returns the builder implementing a resolved (non-auto) strategy.
func ForStrategy(s Strategy) (Builder, error) {
	switch s {
	case StrategyNone:
		return WholeFile{}, nil
	case StrategyVAD:
		return CutMerge{}, nil
	case StrategyTime:
		return FixedWindow{}, nil
	case StrategySilence:
		return SilenceGap{}, nil
	}
	return nil, fmt.Errorf("no builder for strategy %q", s)
}

// WholeFile produces a single chunk spanning the entire file.
type WholeFile struct{}

func (WholeFile) Build(ctx context.Context, src Source, p Params) ([]Chunk, error) {
	return []Chunk{{ID: 0, Interval: timeline.Interval{Start: 0, End: src.TotalDuration}}}, nil
}

// snapCut moves a cut point that falls strictly inside a speech interval to
// the nearest speech boundary within radius. The raw cut is kept when no
// boundary is close enough, or when no VAD data is available.
func snapCut(t float64, speech []timeline.Interval, radius float64) float64 {
	for _, iv := range speech {
		if !iv.Contains(t) {
			continue
		}
		toStart := t - iv.Start
		toEnd := iv.End - t
		if toStart <= toEnd && toStart <= radius {
			return iv.Start
		}
		if toEnd <= radius {
			return iv.End
		}
		if toStart <= radius {
			return iv.Start
		}
		return t
	}
	return t
}

// ensureCoverage stretches chunk intervals so their union covers [0, total]
// with no gaps: the first chunk reaches back to 0, the last forward to total,
// and interior gaps are closed by pulling the following chunk's start back.
func ensureCoverage(intervals []timeline.Interval, total float64) []timeline.Interval {
	if len(intervals) == 0 {
		return []timeline.Interval{{Start: 0, End: total}}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	intervals[0].Start = 0
	last := len(intervals) - 1
	if intervals[last].End < total {
		intervals[last].End = total
	}
	for i := 1; i < len(intervals); i++ {
		if intervals[i].Start > intervals[i-1].End {
			intervals[i].Start = intervals[i-1].End
		}
	}
	return intervals
}

// assignIDs turns raw intervals into immutable chunks numbered in order.
func assignIDs(intervals []timeline.Interval) []Chunk {
	chunks := make([]Chunk, len(intervals))
	for i, iv := range intervals {
		chunks[i] = Chunk{ID: uint32(i), Interval: iv}
	}
	return chunks
}
