package timeline

import "sort"

// Interval is a span of time in seconds on either the chunk-local or the
// global timeline. End is always >= Start.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Overlaps reports whether two intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Overlap returns the length of the shared time between two intervals,
// or 0 if they do not overlap.
func (iv Interval) Overlap(other Interval) float64 {
	start := iv.Start
	if other.Start > start {
		start = other.Start
	}
	end := iv.End
	if other.End < end {
		end = other.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Offset shifts the interval by delta seconds.
func (iv Interval) Offset(delta float64) Interval {
	return Interval{Start: iv.Start + delta, End: iv.End + delta}
}

// Clamp bounds the interval to [lo, hi].
func (iv Interval) Clamp(lo, hi float64) Interval {
	out := iv
	if out.Start < lo {
		out.Start = lo
	}
	if out.End > hi {
		out.End = hi
	}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

// Midpoint returns the center of the interval.
func (iv Interval) Midpoint() float64 {
	return (iv.Start + iv.End) / 2
}

// Contains reports whether t falls strictly inside the interval.
func (iv Interval) Contains(t float64) bool {
	return t > iv.Start && t < iv.End
}

// MergeClose merges intervals whose gap to the previous interval is smaller
// than maxGap. Input order does not matter; output is sorted by Start.
func MergeClose(intervals []Interval, maxGap float64) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start-last.End < maxGap {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// MaxGap returns the largest uncovered stretch when the intervals are laid
// over [0, span]. Used to verify chunk coverage.
func MaxGap(intervals []Interval, span float64) float64 {
	if len(intervals) == 0 {
		return span
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	gap := sorted[0].Start
	covered := sorted[0].End
	for _, iv := range sorted[1:] {
		if iv.Start > covered && iv.Start-covered > gap {
			gap = iv.Start - covered
		}
		if iv.End > covered {
			covered = iv.End
		}
	}
	if span-covered > gap {
		gap = span - covered
	}
	if gap < 0 {
		gap = 0
	}
	return gap
}
