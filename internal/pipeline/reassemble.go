package pipeline

import (
	"sort"
	"strings"

	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/timeline"
)

// Segments overlapping by less than this are treated as merely adjacent and
// never deduplicated.
const dedupEpsilon = 0.1

// Reassemble merges per-chunk segments into a single stream sorted by start
// time and collapses duplicates at chunk boundaries. Two segments are
// duplicates when their intervals overlap by more than epsilon and their
// texts are prefix/suffix or edit-distance near matches; each incoming
// segment is checked against every already-kept segment it overlaps, since an
// overlap region can hold several segments. The survivor is the copy whose
// owning chunk's midpoint lies closer to the segment's own midpoint, text
// near a chunk's edges being the less reliable read. Non-overlapping input
// passes through unchanged.
func Reassemble(results []ChunkResult) []engine.RawSegment {
	type placed struct {
		seg   engine.RawSegment
		chunk timeline.Interval
	}

	var flat []placed
	for _, r := range results {
		for _, seg := range r.Segments {
			flat = append(flat, placed{seg: seg, chunk: r.Chunk.Interval})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].seg.Start < flat[j].seg.Start })

	var kept []placed
	for _, cand := range flat {
		candIv := timeline.Interval{Start: cand.seg.Start, End: cand.seg.End}

		dup := -1
		for k := len(kept) - 1; k >= 0; k-- {
			keptIv := timeline.Interval{Start: kept[k].seg.Start, End: kept[k].seg.End}
			if keptIv.Overlap(candIv) > dedupEpsilon && nearMatch(kept[k].seg.Text, cand.seg.Text) {
				dup = k
				break
			}
		}
		if dup < 0 {
			kept = append(kept, cand)
			continue
		}

		// Duplicate. Keep the copy owned by the nearer chunk.
		keptIv := timeline.Interval{Start: kept[dup].seg.Start, End: kept[dup].seg.End}
		keptDist := distance(keptIv.Midpoint(), kept[dup].chunk.Midpoint())
		candDist := distance(candIv.Midpoint(), cand.chunk.Midpoint())
		if candDist < keptDist {
			kept[dup] = cand
		}
	}

	// Survivor swaps can nudge starts out of order.
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].seg.Start < kept[j].seg.Start })

	segments := make([]engine.RawSegment, len(kept))
	for i, p := range kept {
		segments[i] = p.seg
	}
	return segments
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// nearMatch reports whether two texts plausibly transcribe the same speech.
func nearMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) ||
		strings.HasSuffix(a, b) || strings.HasSuffix(b, a) {
		return true
	}
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	limit := shorter / 5
	if limit < 2 {
		limit = 2
	}
	return editDistance(a, b) <= limit
}

// editDistance is the Levenshtein distance with a rolling single-row table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cur := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			min := prev + cost
			if row[j]+1 < min {
				min = row[j] + 1
			}
			if row[j-1]+1 < min {
				min = row[j-1] + 1
			}
			row[j] = min
			prev = cur
		}
	}
	return row[len(rb)]
}

// AssignSpeakers labels words and segments with the speaker whose turn
// overlaps them the most. Words or segments no turn touches stay unlabeled.
func AssignSpeakers(segments []engine.RawSegment, turns []engine.SpeakerTurn) {
	for i := range segments {
		seg := &segments[i]
		seg.Speaker = dominantSpeaker(timeline.Interval{Start: seg.Start, End: seg.End}, turns)
		for j := range seg.Words {
			w := &seg.Words[j]
			w.Speaker = dominantSpeaker(timeline.Interval{Start: w.Start, End: w.End}, turns)
		}
	}
}

func dominantSpeaker(iv timeline.Interval, turns []engine.SpeakerTurn) string {
	var best string
	var bestOverlap float64
	for _, t := range turns {
		ov := iv.Overlap(timeline.Interval{Start: t.Start, End: t.End})
		if ov > bestOverlap {
			bestOverlap = ov
			best = t.Speaker
		}
	}
	return best
}
