package subtitle

import (
	"math"
	"strings"
	"testing"

	"github.com/longscribe/backend/internal/timeline"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		dialect Dialect
		want    string
	}{
		{0, DialectSRT, "00:00:00,000"},
		{1.5, DialectSRT, "00:00:01,500"},
		{61.042, DialectSRT, "00:01:01,042"},
		{3661.999, DialectSRT, "01:01:01,999"},
		{-2, DialectSRT, "00:00:00,000"},
		{0, DialectVTT, "0:00:00.000"},
		{3661.25, DialectVTT, "1:01:01.250"},
	}
	for _, tt := range tests {
		if got := Timestamp(tt.seconds, tt.dialect); got != tt.want {
			t.Errorf("Timestamp(%v, %s) = %q, want %q", tt.seconds, tt.dialect, got, tt.want)
		}
	}
}

func TestSegmentCues(t *testing.T) {
	segments := []timeline.Segment{
		{Start: 0, End: 2, Text: " Hello there. "},
		{Start: 2, End: 4, Text: "   "},
		{Start: 4, End: 6, Text: "Goodbye."},
	}
	cues := SegmentCues(segments)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Index != 1 || cues[1].Index != 2 {
		t.Errorf("indices = %d, %d; want 1, 2", cues[0].Index, cues[1].Index)
	}
	if cues[0].Text != "Hello there." {
		t.Errorf("text = %q, want trimmed", cues[0].Text)
	}
	if cues[1].Start != 4 {
		t.Errorf("second cue start = %v, want 4", cues[1].Start)
	}
}

func TestWordCues(t *testing.T) {
	segments := []timeline.Segment{
		{Start: 0, End: 2, Text: "Hello there", Words: []timeline.Word{
			{Text: "Hello", Start: 0, End: 0.8},
			{Text: "", Start: 0.8, End: 1.0},
			{Text: "there", Start: 1.0, End: 1.9},
		}},
		{Start: 2, End: 3, Text: "Yes", Words: []timeline.Word{
			{Text: "Yes", Start: 2.1, End: 2.6},
		}},
	}
	cues := WordCues(segments)
	if len(cues) != 3 {
		t.Fatalf("got %d cues, want 3", len(cues))
	}
	for i, c := range cues {
		if c.Index != i+1 {
			t.Errorf("cue %d has index %d", i, c.Index)
		}
	}
	if cues[2].Text != "Yes" || cues[2].Start != 2.1 {
		t.Errorf("last cue = %+v", cues[2])
	}
}

func TestRender(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0, End: 1.5, Text: "Hello there."},
		{Index: 2, Start: 1.5, End: 3, Text: "Goodbye."},
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\nGoodbye.\n\n"
	if got := Render(cues, DialectSRT); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
	if got := Render(nil, DialectSRT); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	segments := []timeline.Segment{
		{Start: 0.25, End: 2.5, Text: "First line."},
		{Start: 2.5, End: 61.042, Text: "Second line."},
		{Start: 61.042, End: 3700.5, Text: "Third line."},
	}
	rendered := Render(SegmentCues(segments), DialectSRT)
	cues, err := ParseCues(rendered)
	if err != nil {
		t.Fatalf("ParseCues: %v", err)
	}
	if len(cues) != len(segments) {
		t.Fatalf("got %d cues, want %d", len(cues), len(segments))
	}
	for i, c := range cues {
		if c.Index != i+1 {
			t.Errorf("cue %d index = %d", i, c.Index)
		}
		if math.Abs(c.Start-segments[i].Start) > 0.001 || math.Abs(c.End-segments[i].End) > 0.001 {
			t.Errorf("cue %d timing = [%v, %v], want [%v, %v]", i, c.Start, c.End, segments[i].Start, segments[i].End)
		}
		if c.Text != segments[i].Text {
			t.Errorf("cue %d text = %q, want %q", i, c.Text, segments[i].Text)
		}
	}
}

func TestParseCuesVTTTimestamps(t *testing.T) {
	text := "1\n0:00:01.250 --> 0:00:02.750\nHi.\n\n"
	cues, err := ParseCues(text)
	if err != nil {
		t.Fatalf("ParseCues: %v", err)
	}
	if len(cues) != 1 || cues[0].Start != 1.25 || cues[0].End != 2.75 {
		t.Errorf("cues = %+v", cues)
	}
}

func TestParseCuesMultilineText(t *testing.T) {
	text := "1\n00:00:00,000 --> 00:00:02,000\nline one\nline two\n\n"
	cues, err := ParseCues(text)
	if err != nil {
		t.Fatalf("ParseCues: %v", err)
	}
	if len(cues) != 1 || !strings.Contains(cues[0].Text, "\n") {
		t.Errorf("cues = %+v", cues)
	}
}

func TestParseCuesBadInput(t *testing.T) {
	if _, err := ParseCues("1\nnot a timing line\ntext\n\n"); err == nil {
		t.Error("expected error for missing arrow")
	}
	if _, err := ParseCues("x\n00:00:00,000 --> 00:00:01,000\ntext\n\n"); err == nil {
		t.Error("expected error for bad index")
	}
}
