// ABOUTME: FLAC decoder producing float32 sample buffers
// ABOUTME: Built on mewkiz/flac frame parsing with bit-depth normalization
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
)

// FLACFile decodes a FLAC file into one complete interleaved float32 buffer.
func FLACFile(path string) (*audio.SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}
	defer f.Close()

	return FLAC(f)
}

// FLAC decodes a FLAC stream into one complete interleaved float32 buffer.
func FLAC(r io.Reader) (*audio.SampleBuffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	sampleRate := int(info.SampleRate)
	bitDepth := int(info.BitsPerSample)
	scale := float32(int64(1) << (bitDepth - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		blockSize := int(frame.BlockSize)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return &audio.SampleBuffer{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}
