package media

import (
	"path/filepath"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i % 512)
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAV(path, samples, 16000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	decoded, rate, err := DecodeWAV(path)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, decoded[i], samples[i])
		}
	}
}
