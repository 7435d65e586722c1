package chunk

import (
	"context"

	"github.com/longscribe/backend/internal/timeline"
)

// FixedWindow tiles the file into target-sized windows stepping by
// target-overlap, so consecutive windows overlap by exactly the margin.
type FixedWindow struct{}

func (FixedWindow) Build(ctx context.Context, src Source, p Params) ([]Chunk, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	total := src.TotalDuration
	if total <= p.Target {
		return assignIDs([]timeline.Interval{{Start: 0, End: total}}), nil
	}

	step := p.Target - p.Overlap
	var intervals []timeline.Interval
	for pos := 0.0; pos < total; pos += step {
		iv := timeline.Interval{Start: pos, End: pos + p.Target}
		if iv.End >= total {
			iv.End = total
			intervals = append(intervals, snapWindow(iv, src.Speech, p, total))
			break
		}
		intervals = append(intervals, snapWindow(iv, src.Speech, p, total))
	}

	intervals = ensureCoverage(intervals, total)
	return assignIDs(intervals), nil
}

// snapWindow applies the shared tie-break rule: window edges never land
// strictly inside a speech interval when VAD data is available.
func snapWindow(iv timeline.Interval, speech []timeline.Interval, p Params, total float64) timeline.Interval {
	if len(speech) == 0 {
		return iv
	}
	out := timeline.Interval{
		Start: snapCut(iv.Start, speech, p.SnapRadius),
		End:   snapCut(iv.End, speech, p.SnapRadius),
	}
	out = out.Clamp(0, total)
	if out.End <= out.Start {
		return iv
	}
	return out
}
