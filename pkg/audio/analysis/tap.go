// ABOUTME: Analysis tap capturing recently played device-format samples
// ABOUTME: Provides an FFT magnitude spectrum for visualization
package analysis

import (
	"math"
	"sync"

	"github.com/argusdusty/gofft"
)

// WindowSize is the number of mono samples held by a tap. Power of two, as
// required by the FFT.
const WindowSize = 2048

// Tap is an optional capability a device backend may expose: a ring of the
// most recently rendered samples, downmixed to mono. Backends that decline
// the capability simply return a nil *Tap.
//
// Feed runs on the device pull path and must stay cheap; Snapshot and
// Spectrum run on the control/UI thread.
type Tap struct {
	mu       sync.Mutex
	ring     [WindowSize]float64
	pos      int
	channels int
}

// NewTap creates a tap for interleaved audio with the given channel count.
func NewTap(channels int) *Tap {
	if channels < 1 {
		channels = 1
	}
	return &Tap{channels: channels}
}

// Feed records a run of interleaved device-format samples.
func (t *Tap) Feed(samples []float32) {
	frames := len(samples) / t.channels
	if frames == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	inv := 1.0 / float64(t.channels)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < t.channels; c++ {
			sum += float64(samples[f*t.channels+c])
		}
		t.ring[t.pos] = sum * inv
		t.pos = (t.pos + 1) % WindowSize
	}
}

// Snapshot returns the window in playback order, oldest sample first.
func (t *Tap) Snapshot() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]float64, WindowSize)
	n := copy(out, t.ring[t.pos:])
	copy(out[n:], t.ring[:t.pos])
	return out
}

// RMS returns the root-mean-square level of the current window.
func (t *Tap) RMS() float64 {
	window := t.Snapshot()

	var sum float64
	for _, s := range window {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(window)))
}

// Spectrum computes a Hanning-windowed FFT of the current window and bins
// the positive-frequency magnitudes into bars normalized to roughly [0, 1].
func (t *Tap) Spectrum(bars int) []float64 {
	if bars < 1 {
		return nil
	}

	windowed := applyHanning(t.Snapshot())
	coeffs := gofft.Float64ToComplex128Array(windowed)
	if err := gofft.FFT(coeffs); err != nil {
		// Only reachable with a non-power-of-two window.
		return make([]float64, bars)
	}

	// Positive frequencies only; skip the DC bin.
	half := len(coeffs) / 2
	binsPerBar := (half - 1) / bars
	if binsPerBar < 1 {
		binsPerBar = 1
	}

	out := make([]float64, bars)
	for bar := 0; bar < bars; bar++ {
		start := 1 + bar*binsPerBar
		end := start + binsPerBar
		if end > half {
			end = half
		}

		var sum float64
		for i := start; i < end; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		mag := sum / float64(binsPerBar)

		// Log scale keeps quiet content visible.
		out[bar] = math.Log10(1 + mag*9/float64(WindowSize)*64)
		if out[bar] > 1 {
			out[bar] = 1
		}
	}

	return out
}

// applyHanning applies a Hanning window to the input data.
func applyHanning(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	for i := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * w
	}
	return windowed
}
