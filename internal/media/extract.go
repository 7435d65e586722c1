package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// WhisperSampleRate is the sample rate the recognition engine expects.
const WhisperSampleRate = 16000

// ExtractAudio decodes the source to WAV 16kHz mono PCM, the format every
// downstream stage (VAD, recognition, alignment, diarization) consumes.
func ExtractAudio(ctx context.Context, srcPath string) (string, error) {
	tmpFile, err := os.CreateTemp("", "longscribe-audio-*.wav")
	if err != nil {
		return "", err
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", srcPath,
		"-vn", // no video
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", WhisperSampleRate),
		"-ac", "1", // mono
		"-y", // overwrite
		tmpFile.Name(),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("ffmpeg: %s: %w", string(output), err)
	}

	return tmpFile.Name(), nil
}
