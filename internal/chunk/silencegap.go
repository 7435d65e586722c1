package chunk

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/longscribe/backend/internal/timeline"
)

// SilenceGap cuts the file at the midpoints of detected silence gaps, then
// bounds worst-case chunk size by re-tiling any piece longer than twice the
// target through FixedWindow.
type SilenceGap struct{}

func (SilenceGap) Build(ctx context.Context, src Source, p Params) ([]Chunk, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	if src.Silences == nil {
		logrus.Warnf("[chunk] silence probing unavailable, using fixed windows")
		return FixedWindow{}.Build(ctx, src, p)
	}

	gaps, err := src.Silences(ctx)
	if err != nil {
		logrus.Warnf("[chunk] silence detection failed, using fixed windows: %v", err)
		return FixedWindow{}.Build(ctx, src, p)
	}
	if len(gaps) == 0 {
		logrus.Warnf("[chunk] no silence gaps found, using fixed windows")
		return FixedWindow{}.Build(ctx, src, p)
	}

	total := src.TotalDuration
	boundaries := []float64{0}
	for _, gap := range gaps {
		cut := snapCut(gap.Midpoint(), src.Speech, p.SnapRadius)
		if cut > boundaries[len(boundaries)-1] && cut < total {
			boundaries = append(boundaries, cut)
		}
	}
	boundaries = append(boundaries, total)

	var intervals []timeline.Interval
	for i := 0; i < len(boundaries)-1; i++ {
		piece := timeline.Interval{Start: boundaries[i], End: boundaries[i+1]}
		if piece.Duration() <= 2*p.Target {
			intervals = append(intervals, piece)
			continue
		}
		// Piece too long for a single recognition call; re-tile it.
		sub, err := FixedWindow{}.Build(ctx, Source{TotalDuration: piece.Duration(), Speech: offsetSpeech(src.Speech, -piece.Start)}, p)
		if err != nil {
			return nil, err
		}
		for _, c := range sub {
			intervals = append(intervals, c.Interval.Offset(piece.Start).Clamp(0, total))
		}
	}

	intervals = ensureCoverage(intervals, total)
	return assignIDs(intervals), nil
}

// offsetSpeech shifts speech intervals into a sub-piece's local timeline.
func offsetSpeech(speech []timeline.Interval, delta float64) []timeline.Interval {
	if len(speech) == 0 {
		return nil
	}
	out := make([]timeline.Interval, 0, len(speech))
	for _, iv := range speech {
		out = append(out, iv.Offset(delta))
	}
	return out
}
