// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, decoded sample buffers and sample conversions
package audio

import "math"

// SampleFormat identifies the on-device sample encoding. The engine and the
// format bridge work in float32 throughout; the encoding only matters at the
// byte boundary of a device backend.
type SampleFormat int

const (
	// FormatFloat32LE is 32-bit IEEE float, little-endian.
	FormatFloat32LE SampleFormat = iota
	// FormatInt16LE is signed 16-bit PCM, little-endian.
	FormatInt16LE
)

// String returns a short name for the sample format.
func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32LE:
		return "f32le"
	case FormatInt16LE:
		return "s16le"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the size of one sample in this encoding.
func (f SampleFormat) BytesPerSample() int {
	if f == FormatInt16LE {
		return 2
	}
	return 4
}

// Format describes a PCM stream: sample rate, channel count and encoding.
// A device may negotiate a different Format than requested; the negotiated
// values are ground truth for all conversion and timing math.
type Format struct {
	SampleRate int
	Channels   int
	Encoding   SampleFormat
}

// BytesPerFrame returns the size of one frame (one sample per channel).
func (f Format) BytesPerFrame() int {
	return f.Channels * f.Encoding.BytesPerSample()
}

// SampleBuffer holds one fully decoded track: interleaved float32 samples
// plus the source channel count and sample rate. It is immutable once
// submitted to the playback engine.
type SampleBuffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// FrameCount returns the number of frames in the buffer.
func (b *SampleBuffer) FrameCount() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds at the source rate.
func (b *SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// SampleToInt16 converts a float32 sample in [-1, 1] to signed 16-bit PCM,
// clamping out-of-range input.
func SampleToInt16(sample float32) int16 {
	scaled := float64(sample) * 32767.0
	if scaled > 32767.0 {
		scaled = 32767.0
	} else if scaled < -32768.0 {
		scaled = -32768.0
	}
	return int16(math.Round(scaled))
}

// SampleFromInt16 converts a signed 16-bit PCM sample to float32 in [-1, 1].
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}
