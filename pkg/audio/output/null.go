// ABOUTME: Manually clocked null device
// ABOUTME: Used by tests and headless runs to drive the pull path deterministically
package output

import (
	"fmt"
	"sync"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
)

// Null is a device with no hardware behind it. The pull callback only runs
// when the owner calls Step, which makes device consumption fully
// deterministic: tests advance the "device clock" frame by frame.
//
// Its Negotiate field lets a test exercise format negotiation: when set,
// Open returns it instead of the requested format.
type Null struct {
	// Negotiate, when non-zero, is returned by Open in place of the
	// requested format.
	Negotiate audio.Format

	// Unavailable makes Open fail, simulating a machine with no
	// playback device.
	Unavailable bool

	mu     sync.Mutex
	format audio.Format
	src    PullSource
	tap    *analysis.Tap
	open   bool
	muted  bool
}

// NewNull creates a null device. A zero negotiate format means "accept
// whatever is requested".
func NewNull(negotiate audio.Format) *Null {
	return &Null{Negotiate: negotiate}
}

// Open records the negotiated format.
func (d *Null) Open(requested audio.Format) (audio.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Unavailable {
		return audio.Format{}, fmt.Errorf("%w: no playback device present", ErrDeviceUnavailable)
	}

	d.format = requested
	if d.Negotiate.SampleRate != 0 {
		d.format = d.Negotiate
	}
	d.format.Encoding = audio.FormatFloat32LE
	d.tap = analysis.NewTap(d.format.Channels)
	d.open = true
	d.muted = true

	return d.format, nil
}

// Bind attaches the pull source.
func (d *Null) Bind(src PullSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = src
}

// Mute gates Step.
func (d *Null) Mute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = true
}

// Unmute opens the gate again.
func (d *Null) Unmute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muted = false
}

// Muted reports the gate state.
func (d *Null) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// AnalysisTap returns the capture tap, nil before Open.
func (d *Null) AnalysisTap() *analysis.Tap {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tap
}

// Close marks the device closed. Idempotent.
func (d *Null) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// Step simulates one device callback period asking for the given number of
// frames. It returns the samples actually produced by the source, which may
// be short on underrun, and nothing at all while muted or unbound.
func (d *Null) Step(frames int) []float32 {
	d.mu.Lock()
	src := d.src
	muted := d.muted
	open := d.open
	channels := d.format.Channels
	tap := d.tap
	d.mu.Unlock()

	if !open || muted || src == nil || frames <= 0 {
		return nil
	}

	buf := make([]float32, frames*channels)
	n := src.Pull(buf)
	buf = buf[:n*channels]

	if tap != nil {
		tap.Feed(buf)
	}

	return buf
}
