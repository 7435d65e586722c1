package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/longscribe/backend/internal/timeline"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// DetectSilence finds silence gaps of at least minDuration seconds using
// ffmpeg's silencedetect filter. noiseDB is the threshold, e.g. -50.
func DetectSilence(ctx context.Context, audioPath string, minDuration float64, noiseDB int) ([]timeline.Interval, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", audioPath,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f", noiseDB, minDuration),
		"-f", "null",
		"-",
	)

	// silencedetect reports on stderr; ffmpeg may exit non-zero even when
	// the output is usable, so parse whatever came back first.
	output, err := cmd.CombinedOutput()
	if len(output) == 0 && err != nil {
		return nil, fmt.Errorf("silencedetect: %w", err)
	}

	return ParseSilenceOutput(string(output)), nil
}

// ParseSilenceOutput extracts silence intervals from ffmpeg silencedetect
// stderr lines:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
func ParseSilenceOutput(output string) []timeline.Interval {
	var silences []timeline.Interval
	var start float64
	haveStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start = v
				haveStart = true
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && haveStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= start {
				silences = append(silences, timeline.Interval{Start: start, End: v})
			}
			haveStart = false
		}
	}

	return silences
}
