// ABOUTME: File decoding entry point for lossless sources
// ABOUTME: Dispatches by extension and produces one complete SampleBuffer
package decode

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
)

// Metadata carries display information about a decoded track.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// FromFile decodes a local audio file into a single interleaved float32
// buffer. Supported formats are WAV and FLAC; lossy codecs are out of scope
// for this library.
func FromFile(path string) (*audio.SampleBuffer, Metadata, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, Metadata{}, fmt.Errorf("audio file not found: %s", path)
	}

	filename := filepath.Base(path)
	meta := Metadata{
		Title:  strings.TrimSuffix(filename, filepath.Ext(filename)),
		Artist: "Unknown Artist",
		Album:  "Unknown Album",
	}

	var (
		buf *audio.SampleBuffer
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		buf, err = WAVFile(path)
	case ".flac":
		buf, err = FLACFile(path)
	default:
		return nil, Metadata{}, fmt.Errorf("unsupported audio format: %s (supported: .wav, .flac)", ext)
	}
	if err != nil {
		return nil, Metadata{}, err
	}

	log.Printf("Decoded %s: %d frames, %d channels, %d Hz (%.1fs)",
		filename, buf.FrameCount(), buf.Channels, buf.SampleRate, buf.Duration())

	return buf, meta, nil
}
