package media

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"` // video, audio, subtitle
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Info is the decoded metadata of a media file.
type Info struct {
	Duration   float64 `json:"duration"`
	SizeBytes  int64   `json:"size_bytes"`
	Format     string  `json:"format"`
	AudioCodec string  `json:"audio_codec"`
	VideoCodec string  `json:"video_codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
}

// Probe extracts media metadata using ffprobe.
func Probe(filePath string) (*Info, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{Format: result.Format.FormatName}
	info.Duration, _ = strconv.ParseFloat(result.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(result.Format.Size, 10, 64)

	for _, s := range result.Streams {
		switch s.CodecType {
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
				info.SampleRate, _ = strconv.Atoi(s.SampleRate)
				info.Channels = s.Channels
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
		}
	}

	return info, nil
}
