// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion and buffer math
package audio

import (
	"math"
	"testing"
)

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full scale positive", 1.0, 32767},
		{"full scale negative", -1.0, -32767},
		{"half scale", 0.5, 16384},
		{"clamps above range", 2.0, 32767},
		{"clamps below range", -2.0, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.9, -0.9}

	for _, original := range samples {
		result := SampleFromInt16(SampleToInt16(original))
		if math.Abs(float64(result-original)) > 1.0/32768.0 {
			t.Errorf("round-trip drifted: %f -> %f", original, result)
		}
	}
}

func TestSampleBufferFrameCount(t *testing.T) {
	buf := &SampleBuffer{
		Samples:    make([]float32, 400),
		Channels:   2,
		SampleRate: 44100,
	}

	if buf.FrameCount() != 200 {
		t.Errorf("expected 200 frames, got %d", buf.FrameCount())
	}
}

func TestSampleBufferDuration(t *testing.T) {
	buf := &SampleBuffer{
		Samples:    make([]float32, 44100*2),
		Channels:   2,
		SampleRate: 44100,
	}

	if buf.Duration() != 1.0 {
		t.Errorf("expected 1s duration, got %f", buf.Duration())
	}
}

func TestSampleBufferZeroChannels(t *testing.T) {
	buf := &SampleBuffer{Samples: make([]float32, 100)}

	if buf.FrameCount() != 0 {
		t.Errorf("expected 0 frames for zero channels, got %d", buf.FrameCount())
	}
	if buf.Duration() != 0 {
		t.Errorf("expected 0 duration for zero rate, got %f", buf.Duration())
	}
}

func TestFormatBytesPerFrame(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected int
	}{
		{"stereo float", Format{48000, 2, FormatFloat32LE}, 8},
		{"stereo s16", Format{48000, 2, FormatInt16LE}, 4},
		{"mono float", Format{44100, 1, FormatFloat32LE}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BytesPerFrame(); got != tt.expected {
				t.Errorf("expected %d bytes per frame, got %d", tt.expected, got)
			}
		})
	}
}
