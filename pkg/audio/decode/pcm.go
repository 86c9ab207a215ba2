// ABOUTME: Raw PCM decoder producing float32 sample buffers
// ABOUTME: Handles s16le and f32le byte streams with caller-supplied format
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
)

// PCM decodes raw little-endian PCM bytes into a sample buffer. The caller
// supplies the format, since raw streams carry no header. Trailing bytes
// that do not fill a whole frame are dropped.
func PCM(data []byte, channels, sampleRate int, enc audio.SampleFormat) (*audio.SampleBuffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	bytesPerSample := enc.BytesPerSample()
	numSamples := len(data) / bytesPerSample
	numSamples = (numSamples / channels) * channels

	samples := make([]float32, numSamples)
	switch enc {
	case audio.FormatInt16LE:
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	case audio.FormatFloat32LE:
		for i := 0; i < numSamples; i++ {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		return nil, fmt.Errorf("unsupported PCM encoding %s", enc)
	}

	return &audio.SampleBuffer{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}
