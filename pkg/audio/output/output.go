// ABOUTME: Output device abstraction
// ABOUTME: Defines the Device interface, pull source contract and backend registry
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
)

// ErrDeviceUnavailable reports that no usable playback device could be
// opened. Fatal to the engine instance; retrying is the caller's decision.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// PullSource supplies converted device-format frames on demand. Pull copies
// up to len(dst)/channels frames into dst and returns how many frames were
// written; it returns short (including zero) instead of blocking.
type PullSource interface {
	Pull(dst []float32) int
}

// Device is a single playback endpoint with pull-driven timing.
//
// Open negotiates the device format once; the returned format may differ
// from the requested one and is ground truth for all conversion and timing
// math. Bind attaches the pull source the device drains on its own schedule.
// Mute and Unmute gate the pull callback and are safe to call from the
// control thread while a pull is executing. Close is idempotent.
type Device interface {
	Open(requested audio.Format) (audio.Format, error)
	Bind(src PullSource)
	Mute()
	Unmute()
	Close() error

	// AnalysisTap exposes recently rendered samples for visualization.
	// Backends may decline the capability by returning nil.
	AnalysisTap() *analysis.Tap
}

// New creates a device for the named backend: "oto", "malgo" or "null".
func New(backend string) (Device, error) {
	switch backend {
	case "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "null":
		return NewNull(audio.Format{}), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (supported: oto, malgo, null)", backend)
	}
}

// encodeFrames serializes interleaved float32 samples into dst using the
// given encoding. dst must hold len(src)*enc.BytesPerSample() bytes.
func encodeFrames(dst []byte, src []float32, enc audio.SampleFormat) {
	switch enc {
	case audio.FormatInt16LE:
		for i, s := range src {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(s)))
		}
	default:
		for i, s := range src {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
		}
	}
}
