// ABOUTME: Streaming format bridge between source audio and a playback device
// ABOUTME: Buffers pushed source samples and yields device-format frames on demand
package bridge

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/resample"
)

// MaxChannels is the highest channel count the remix policy supports.
const MaxChannels = 8

// ErrConfig reports a nonsensical source or device format.
var ErrConfig = errors.New("invalid bridge configuration")

// Stream converts pushed source-format sample runs into device-format frames.
//
// Push, Clear and SetGain belong to the control context and must come from a
// single goroutine; only Pull may run concurrently with them, from the device
// context. Neither side blocks the other beyond a bounded critical section:
// conversion happens on the push side before the lock is taken, the backlog
// is a queue of converted chunks appended in O(1), and Pull copies at most
// the requested frames. Push grows the backlog without bound; Pull returns
// fewer frames than asked (including zero) when the backlog runs dry.
// Underrun is not an error here; the device adapter decides whether to pad.
//
// Remix policy: mono fans out to every device channel; multi-channel down to
// mono averages with equal weights; otherwise output channel c takes source
// channel min(c, srcChannels-1). This is a simple nearest mapping, not a
// perceptual downmix.
type Stream struct {
	srcRate     int
	srcChannels int
	dst         audio.Format

	mu     sync.Mutex
	chunks [][]float32 // converted backlog, device-format interleaved
	head   int         // samples consumed from chunks[0]

	available atomic.Int64  // converted frames not yet pulled
	gain      atomic.Uint64 // float64 bits, applied at pull time

	rs *resample.Resampler // nil when rates match; control context only
}

// New creates a bridge converting from the given source rate and channel
// count to the device format.
func New(srcRate, srcChannels int, dst audio.Format) (*Stream, error) {
	if srcRate <= 0 || dst.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive (src %d, device %d)",
			ErrConfig, srcRate, dst.SampleRate)
	}
	if srcChannels < 1 || srcChannels > MaxChannels {
		return nil, fmt.Errorf("%w: source channels %d outside 1..%d",
			ErrConfig, srcChannels, MaxChannels)
	}
	if dst.Channels < 1 || dst.Channels > MaxChannels {
		return nil, fmt.Errorf("%w: device channels %d outside 1..%d",
			ErrConfig, dst.Channels, MaxChannels)
	}

	s := &Stream{
		srcRate:     srcRate,
		srcChannels: srcChannels,
		dst:         dst,
	}
	if srcRate != dst.SampleRate {
		s.rs = resample.New(srcRate, dst.SampleRate, dst.Channels)
	}
	s.gain.Store(math.Float64bits(1.0))

	return s, nil
}

// DeviceFormat returns the output format the bridge converts to.
func (s *Stream) DeviceFormat() audio.Format {
	return s.dst
}

// Ratio returns source frames per device frame.
func (s *Stream) Ratio() float64 {
	return float64(s.srcRate) / float64(s.dst.SampleRate)
}

// Push enqueues a run of interleaved source-format samples for conversion.
// The run is converted eagerly so AvailableFrames stays O(1), but the whole
// conversion runs before the lock is taken: a concurrent Pull only ever
// waits out the O(1) queue append, no matter how large the run. A trailing
// partial frame is dropped.
func (s *Stream) Push(samples []float32) {
	frames := len(samples) / s.srcChannels
	if frames == 0 {
		return
	}
	samples = samples[:frames*s.srcChannels]

	converted := remix(samples, s.srcChannels, s.dst.Channels)
	if s.rs != nil {
		converted = s.rs.Resample(converted)
	}
	if len(converted) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, converted)
	s.available.Add(int64(len(converted) / s.dst.Channels))
}

// Pull copies up to len(dst)/channels converted frames into dst, applying
// the current gain, and removes them from the backlog. It returns the number
// of frames written, zero when the backlog is exhausted. It never blocks on
// data availability, and its critical section is bounded by the requested
// frame count.
func (s *Stream) Pull(dst []float32) int {
	ch := s.dst.Channels
	maxFrames := len(dst) / ch
	if maxFrames == 0 {
		return 0
	}

	gain := float32(math.Float64frombits(s.gain.Load()))

	s.mu.Lock()
	defer s.mu.Unlock()

	want := maxFrames * ch
	written := 0

	for written < want && len(s.chunks) > 0 {
		chunk := s.chunks[0]
		n := len(chunk) - s.head
		if n > want-written {
			n = want - written
		}

		src := chunk[s.head : s.head+n]
		if gain == 1.0 {
			copy(dst[written:], src)
		} else {
			for i, v := range src {
				dst[written+i] = v * gain
			}
		}

		written += n
		s.head += n
		if s.head == len(chunk) {
			s.chunks[0] = nil
			s.chunks = s.chunks[1:]
			s.head = 0
		}
	}

	frames := written / ch
	s.available.Add(int64(-frames))
	return frames
}

// AvailableFrames reports the backlog size in converted-domain frames. It is
// a single atomic read, safe from any thread without taking the lock.
func (s *Stream) AvailableFrames() int {
	return int(s.available.Load())
}

// Clear drops the whole backlog and resets conversion state. Used on seek
// and stop. The queue is swapped out whole; an in-flight Pull completes
// against the chunks it already holds and the next one sees the new, empty
// generation.
func (s *Stream) Clear() {
	// Pull never touches the resampler, so this needs no lock.
	if s.rs != nil {
		s.rs.Reset()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	s.head = 0
	s.available.Store(0)
}

// SetGain scales all frames pulled after this call by factor. Negative
// factors clamp to zero. Not retroactive to frames already pulled.
func (s *Stream) SetGain(factor float64) {
	if factor < 0 {
		factor = 0
	}
	s.gain.Store(math.Float64bits(factor))
}

// Gain returns the current pull-side gain factor.
func (s *Stream) Gain() float64 {
	return math.Float64frombits(s.gain.Load())
}

// remix converts interleaved samples between channel layouts. The result is
// always a fresh slice; the bridge keeps it as a backlog chunk.
func remix(samples []float32, srcCh, dstCh int) []float32 {
	if srcCh == dstCh {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	frames := len(samples) / srcCh
	out := make([]float32, frames*dstCh)

	switch {
	case srcCh == 1:
		for f := 0; f < frames; f++ {
			v := samples[f]
			for c := 0; c < dstCh; c++ {
				out[f*dstCh+c] = v
			}
		}
	case dstCh == 1:
		inv := 1.0 / float32(srcCh)
		for f := 0; f < frames; f++ {
			var sum float32
			for c := 0; c < srcCh; c++ {
				sum += samples[f*srcCh+c]
			}
			out[f] = sum * inv
		}
	default:
		for f := 0; f < frames; f++ {
			for c := 0; c < dstCh; c++ {
				sc := c
				if sc >= srcCh {
					sc = srcCh - 1
				}
				out[f*dstCh+c] = samples[f*srcCh+sc]
			}
		}
	}

	return out
}
