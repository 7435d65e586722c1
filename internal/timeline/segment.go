package timeline

import "strings"

// Word is a single recognized word. Start/End are chunk-local until the
// reassembler offsets them onto the global timeline.
type Word struct {
	Text       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float32 `json:"score"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Segment is one transcript segment. Words is empty until alignment runs,
// Speaker is empty until diarization runs.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// Interval returns the segment's time span.
func (s Segment) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// PlainText joins the trimmed segment texts with single spaces.
func PlainText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
