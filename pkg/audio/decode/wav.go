// ABOUTME: WAV decoder producing float32 sample buffers
// ABOUTME: Built on go-audio/wav with normalization by source bit depth
package decode

import (
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
)

// WAVFile decodes a WAV file into one complete interleaved float32 buffer.
func WAVFile(path string) (*audio.SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	return WAV(f)
}

// WAV decodes WAV data from a seekable reader.
func WAV(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	bitDepth := int(decoder.BitDepth)
	maxVal := float32(gaudio.IntMaxSignedValue(bitDepth))

	var samples []float32
	intBuf := &gaudio.IntBuffer{
		Data: make([]int, 8192*channels),
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
	}

	for {
		n, err := decoder.PCMBuffer(intBuf)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
		}
		if n == 0 {
			break
		}

		for i := 0; i < n; i++ {
			samples = append(samples, float32(intBuf.Data[i])/maxVal)
		}

		if err == io.EOF {
			break
		}
	}

	// Drop any trailing partial frame from a truncated file.
	samples = samples[:(len(samples)/channels)*channels]

	return &audio.SampleBuffer{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}
