// Package subtitle renders transcript segments into subtitle cue text and
// plain text. Everything here is a pure function of the segment list.
package subtitle

import (
	"fmt"
	"math"
	"strings"

	"github.com/longscribe/backend/internal/timeline"
)

// Dialect selects the subtitle timestamp format.
type Dialect string

const (
	// DialectSRT renders timestamps as HH:MM:SS,mmm.
	DialectSRT Dialect = "srt"
	// DialectVTT renders timestamps as H:MM:SS.mmm.
	DialectVTT Dialect = "vtt"
)

// Cue is one numbered subtitle entry.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Timestamp formats seconds in the dialect's timestamp format with
// millisecond precision.
func Timestamp(seconds float64, d Dialect) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	millis := ms % 1000

	if d == DialectVTT {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, millis)
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

// WordCues produces one cue per word, numbered from 1. Words with empty text
// are skipped; the numbering stays contiguous.
func WordCues(segments []timeline.Segment) []Cue {
	var cues []Cue
	index := 1
	for _, seg := range segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			cues = append(cues, Cue{Index: index, Start: w.Start, End: w.End, Text: text})
			index++
		}
	}
	return cues
}

// SegmentCues produces one cue per segment, numbered from 1. Segments with
// empty text are skipped.
func SegmentCues(segments []timeline.Segment) []Cue {
	var cues []Cue
	index := 1
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Index: index, Start: seg.Start, End: seg.End, Text: text})
		index++
	}
	return cues
}

// Render writes cues in the subtitle block format:
//
//	<index>\n<start> --> <end>\n<text>\n\n
func Render(cues []Cue, d Dialect) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Index, Timestamp(c.Start, d), Timestamp(c.End, d), c.Text)
	}
	return b.String()
}

// ParseCues is the inverse of Render. It accepts both dialects' timestamps.
func ParseCues(text string) ([]Cue, error) {
	var cues []Cue
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		var index int
		if _, err := fmt.Sscanf(lines[0], "%d", &index); err != nil {
			return nil, fmt.Errorf("bad cue index %q: %w", lines[0], err)
		}
		parts := strings.Split(lines[1], " --> ")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad cue timing %q", lines[1])
		}
		start, err := parseTimestamp(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := parseTimestamp(parts[1])
		if err != nil {
			return nil, err
		}
		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}

func parseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	var h, m int
	var sec float64
	if _, err := fmt.Sscanf(s, "%d:%d:%f", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}
