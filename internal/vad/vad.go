package vad

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"

	"github.com/longscribe/backend/internal/timeline"
)

// Detector classifies audio into speech intervals. Implementations report
// intervals in seconds on the local timeline of the given sample buffer.
type Detector interface {
	Detect(samples []int16, sampleRate int) ([]timeline.Interval, error)
}

// frameMS is the VAD analysis window. WebRTC VAD accepts 10, 20 or 30 ms.
const frameMS = 30

// WebRTC runs the WebRTC voice-activity detector over fixed-size frames.
type WebRTC struct {
	aggressiveness int
}

// NewWebRTC creates a detector. Aggressiveness ranges 0 (permissive) to 3
// (most aggressive filtering of non-speech).
func NewWebRTC(aggressiveness int) *WebRTC {
	return &WebRTC{aggressiveness: aggressiveness}
}

func (d *WebRTC) Detect(samples []int16, sampleRate int) ([]timeline.Interval, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("sample rate %d not supported by webrtc vad", sampleRate)
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(d.aggressiveness); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}

	frameSamples := sampleRate * frameMS / 1000
	if !v.ValidRateAndFrameLength(sampleRate, frameSamples) {
		return nil, fmt.Errorf("invalid frame length %d for rate %d", frameSamples, sampleRate)
	}

	var (
		intervals  []timeline.Interval
		inSpeech   bool
		startFrame int
	)

	numFrames := len(samples) / frameSamples
	for i := 0; i < numFrames; i++ {
		frame := frameBytes(samples[i*frameSamples : (i+1)*frameSamples])
		voiced, err := v.Process(sampleRate, frame)
		if err != nil {
			return nil, fmt.Errorf("vad frame %d: %w", i, err)
		}

		if voiced && !inSpeech {
			inSpeech = true
			startFrame = i
		} else if !voiced && inSpeech {
			inSpeech = false
			intervals = append(intervals, frameInterval(startFrame, i, frameSamples, sampleRate))
		}
	}
	if inSpeech {
		intervals = append(intervals, frameInterval(startFrame, numFrames, frameSamples, sampleRate))
	}

	return intervals, nil
}

// frameBytes serializes a sample frame to the little-endian 16-bit PCM
// layout the detector expects.
func frameBytes(samples []int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return buf
}

// frameInterval converts a [startFrame, endFrame) frame range to seconds,
// normalizing by the detector's sample rate.
func frameInterval(startFrame, endFrame, frameSamples, sampleRate int) timeline.Interval {
	return timeline.Interval{
		Start: float64(startFrame*frameSamples) / float64(sampleRate),
		End:   float64(endFrame*frameSamples) / float64(sampleRate),
	}
}

// Adapter normalizes raw detector output for the chunk builders: close
// intervals are merged, fragments are dropped, and detector failures come
// back as an empty list so callers fall back to fixed-window chunking.
type Adapter struct {
	detector   Detector
	minSpeech  float64 // drop speech intervals shorter than this
	minSilence float64 // merge intervals separated by less than this
}

func NewAdapter(detector Detector, minSpeech, minSilence float64) *Adapter {
	return &Adapter{detector: detector, minSpeech: minSpeech, minSilence: minSilence}
}

// SpeechIntervals returns cleaned speech intervals in seconds. It never
// returns an error; an unavailable or failing detector yields nil.
func (a *Adapter) SpeechIntervals(samples []int16, sampleRate int) []timeline.Interval {
	if a.detector == nil {
		return nil
	}

	raw, err := a.detector.Detect(samples, sampleRate)
	if err != nil {
		logrus.Warnf("[vad] detection failed, falling back to time-based chunking: %v", err)
		return nil
	}

	merged := timeline.MergeClose(raw, a.minSilence)

	kept := merged[:0]
	for _, iv := range merged {
		if iv.Duration() >= a.minSpeech {
			kept = append(kept, iv)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
