package chunk

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/longscribe/backend/internal/timeline"
)

// CutMerge builds chunks by merging detected speech intervals up to the
// target duration, cutting at interval boundaries where possible and adding
// the overlap margin at every cut.
type CutMerge struct{}

func (CutMerge) Build(ctx context.Context, src Source, p Params) ([]Chunk, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	speech := src.Speech
	if len(speech) == 0 {
		logrus.Warnf("[chunk] no speech intervals detected, using fixed windows")
		return FixedWindow{}.Build(ctx, src, p)
	}

	var (
		intervals   []timeline.Interval
		windowStart = 0.0
		currentEnd  = 0.0
	)

	closeAt := func(cut float64) {
		cut = snapCut(cut, speech, p.SnapRadius)
		if cut <= windowStart {
			cut = windowStart + p.Target
		}
		intervals = append(intervals, timeline.Interval{Start: windowStart, End: cut})
		windowStart = cut - p.Overlap
		if windowStart < 0 {
			windowStart = 0
		}
	}

	for _, iv := range speech {
		if iv.End-windowStart <= p.Target {
			currentEnd = iv.End
			continue
		}

		// The window is full. Cut at the accumulated speech boundary when
		// there is one; a single interval longer than the target is cut
		// inside, snapped away from speech where the radius allows.
		if currentEnd > windowStart {
			closeAt(currentEnd)
		}
		for iv.End-windowStart > p.Target {
			closeAt(windowStart + p.Target)
		}
		currentEnd = iv.End
	}

	end := currentEnd + p.Overlap
	if end > src.TotalDuration {
		end = src.TotalDuration
	}
	if end > windowStart {
		intervals = append(intervals, timeline.Interval{Start: windowStart, End: end})
	}

	intervals = ensureCoverage(intervals, src.TotalDuration)
	return assignIDs(intervals), nil
}
