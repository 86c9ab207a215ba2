// ABOUTME: Sample-accurate playback engine with transport state machine
// ABOUTME: Derives playback position from the bridge backlog instead of a counter
package player

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/bridge"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/output"
)

// State is the transport state of the engine.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// StatusInterval is the recommended polling period while playing.
const StatusInterval = 100 * time.Millisecond

// Status is the latest-value-wins snapshot pushed to the state observer
// after every transport call and on each poll tick while playing.
type Status struct {
	State     State
	IsPlaying bool
	IsLoading bool
	Position  float64 // seconds into the track
	Duration  float64 // seconds
	Volume    float64
	Track     uuid.UUID // zero when nothing is loaded
}

// Handle identifies one submitted track.
type Handle struct {
	ID       uuid.UUID
	Frames   int
	Duration float64
}

// Config holds engine construction parameters.
type Config struct {
	// Device is the output device to open. Required.
	Device output.Device

	// RequestedFormat is the format asked of the device; the device may
	// negotiate different values. Defaults to stereo 48kHz.
	RequestedFormat audio.Format

	// OnStateChange, when set, is called synchronously on the control
	// thread after every transport call and on poll ticks while playing.
	OnStateChange func(Status)
}

// Engine owns the decoded sample buffer, transport state, play head and
// volume, and primes the format bridge that the device drains on its own
// schedule. All exported methods are safe to call from one control thread
// while the device concurrently pulls from the bridge.
//
// The play head is never incremented during playback. Position is derived
// on query from how much converted backlog remains, which is the one value
// both the control thread and the device thread can read without blocking
// the audio path.
type Engine struct {
	mu sync.Mutex

	device       output.Device
	deviceFormat audio.Format
	onState      func(Status)

	buf    *audio.SampleBuffer
	stream *bridge.Stream
	handle Handle

	state    State
	playHead int // frames into buf; the resumption point while not playing
	anchor   int // play head at the moment of the last push or seek
	pushed   bool // whether [anchor, frameCount) backs the current backlog

	volume float64
	closed bool
}

// New opens the device and returns an engine bound to it.
func New(cfg Config) (*Engine, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("player: no device configured")
	}

	requested := cfg.RequestedFormat
	if requested.SampleRate == 0 {
		requested = audio.Format{SampleRate: 48000, Channels: 2, Encoding: audio.FormatFloat32LE}
	}

	negotiated, err := cfg.Device.Open(requested)
	if err != nil {
		return nil, fmt.Errorf("player: open device: %w", err)
	}

	log.Printf("Playback engine ready: device %dHz, %d channels",
		negotiated.SampleRate, negotiated.Channels)

	return &Engine{
		device:       cfg.Device,
		deviceFormat: negotiated,
		onState:      cfg.OnStateChange,
		volume:       1.0,
	}, nil
}

// DeviceFormat returns the negotiated device format.
func (e *Engine) DeviceFormat() audio.Format {
	return e.deviceFormat
}

// SubmitDecodedAudio is the decoder boundary: one atomic hand-off of a fully
// decoded interleaved float32 buffer.
func (e *Engine) SubmitDecodedAudio(samples []float32, channels, sampleRate int) (Handle, error) {
	return e.Load(&audio.SampleBuffer{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	})
}

// Load replaces the current track, resets the play head and stops playback.
// On any error the previous track and transport state are untouched.
func (e *Engine) Load(buf *audio.SampleBuffer) (Handle, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return Handle{}, ErrClosed
	}
	if err := validateBuffer(buf); err != nil {
		e.mu.Unlock()
		return Handle{}, err
	}

	stream, err := bridge.New(buf.SampleRate, buf.Channels, e.deviceFormat)
	if err != nil {
		e.mu.Unlock()
		return Handle{}, err
	}
	stream.SetGain(e.volume)

	e.device.Mute()
	e.device.Bind(stream)

	e.buf = buf
	e.stream = stream
	e.playHead = 0
	e.anchor = 0
	e.pushed = false
	e.state = Stopped
	e.handle = Handle{
		ID:       uuid.New(),
		Frames:   buf.FrameCount(),
		Duration: buf.Duration(),
	}

	handle := e.handle
	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
	return handle, nil
}

func validateBuffer(buf *audio.SampleBuffer) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if buf.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidBuffer, buf.Channels)
	}
	if buf.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, buf.SampleRate)
	}
	if len(buf.Samples)%buf.Channels != 0 {
		return fmt.Errorf("%w: %d samples not aligned to %d channels",
			ErrInvalidBuffer, len(buf.Samples), buf.Channels)
	}
	if buf.FrameCount() == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidBuffer)
	}
	return nil
}

// Play starts or resumes playback. Resuming from pause with backlog intact
// only unmutes; the guard against re-pushing prevents duplicated audio.
func (e *Engine) Play() error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.buf == nil {
		e.mu.Unlock()
		return ErrNoBufferLoaded
	}
	if e.state == Playing {
		e.mu.Unlock()
		return nil
	}

	if e.stream.AvailableFrames() == 0 {
		// Fresh start, post-seek start, or a pause that drained dry:
		// re-anchor at the derived position and push the remainder.
		e.playHead = e.currentFrameLocked()
		e.anchor = e.playHead

		start := e.playHead * e.buf.Channels
		if start < len(e.buf.Samples) {
			e.stream.Push(e.buf.Samples[start:])
		}
		e.pushed = true
	}

	e.device.Unmute()
	e.state = Playing

	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
	return nil
}

// Resume is equivalent to Play when already primed.
func (e *Engine) Resume() error {
	return e.Play()
}

// Pause mutes the device and freezes the backlog. No-op unless playing.
func (e *Engine) Pause() {
	e.mu.Lock()

	if e.closed || e.state != Playing {
		e.mu.Unlock()
		return
	}

	e.device.Mute()
	e.state = Paused

	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
}

// Stop mutes the device, drops the backlog and rewinds the play head.
func (e *Engine) Stop() {
	e.mu.Lock()

	if e.closed || e.buf == nil {
		e.mu.Unlock()
		return
	}

	e.stopLocked()

	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
}

func (e *Engine) stopLocked() {
	e.device.Mute()
	e.stream.Clear()
	e.playHead = 0
	e.anchor = 0
	e.pushed = false
	e.state = Stopped
}

// Seek moves the play head to the given time, clamped to [0, duration].
// While playing, the remainder is re-pushed immediately so audio continues
// from the target without a gap; otherwise the backlog stays empty until the
// next Play. Transport state is unchanged.
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.buf == nil {
		e.mu.Unlock()
		return ErrNoBufferLoaded
	}

	if seconds < 0 {
		seconds = 0
	}
	if d := e.buf.Duration(); seconds > d {
		seconds = d
	}

	frame := int(math.Round(seconds * float64(e.buf.SampleRate)))
	if frameCount := e.buf.FrameCount(); frame > frameCount {
		frame = frameCount
	}

	e.playHead = frame
	e.anchor = frame
	e.stream.Clear()
	e.pushed = false

	if e.state == Playing {
		start := frame * e.buf.Channels
		if start < len(e.buf.Samples) {
			e.stream.Push(e.buf.Samples[start:])
		}
		e.pushed = true
	}

	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
	return nil
}

// SetVolume sets the gain, clamped to [0, 1]. Takes effect on queued but
// unrendered samples by the next device pull.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return
	}

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
	if e.stream != nil {
		e.stream.SetGain(v)
	}

	st := e.statusLocked()
	e.mu.Unlock()

	e.notify(st)
}

// Volume returns the current gain.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Duration returns the loaded track length in seconds, 0 when empty.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf == nil {
		return 0
	}
	return e.buf.Duration()
}

// Position returns the current playback time in seconds. Querying position
// is also what detects natural end of track: once the backlog drains with
// nothing left to push, the engine transitions to Stopped.
func (e *Engine) Position() float64 {
	return e.Status().Position
}

// Status returns a consistent snapshot and performs ended detection.
func (e *Engine) Status() Status {
	e.mu.Lock()

	ended := e.state == Playing && e.pushed && e.stream.AvailableFrames() == 0
	if ended {
		e.stopLocked()
	}

	st := e.statusLocked()
	e.mu.Unlock()

	if ended {
		e.notify(st)
	}
	return st
}

// statusLocked builds a snapshot without tearing; callers hold mu.
func (e *Engine) statusLocked() Status {
	st := Status{
		State:     e.state,
		IsPlaying: e.state == Playing,
		Volume:    e.volume,
		Track:     e.handle.ID,
	}
	if e.buf != nil {
		st.Duration = e.buf.Duration()
		st.Position = float64(e.currentFrameLocked()) / float64(e.buf.SampleRate)
		if st.Position > st.Duration {
			st.Position = st.Duration
		}
	}
	return st
}

// currentFrameLocked derives the current source frame. While the backlog
// backs [anchor, end), position is anchor plus what the device has consumed;
// the consumed amount is recovered from the converted frames still waiting:
//
//	srcRemaining = availableConverted * (srcRate / deviceRate)
//	consumed     = (frameCount - anchor) - srcRemaining
func (e *Engine) currentFrameLocked() int {
	if e.buf == nil {
		return 0
	}
	if e.stream == nil || !e.pushed {
		return e.playHead
	}

	frameCount := e.buf.FrameCount()
	srcRemaining := int(math.Round(float64(e.stream.AvailableFrames()) * e.stream.Ratio()))

	consumed := (frameCount - e.anchor) - srcRemaining
	if consumed < 0 {
		consumed = 0
	}

	cur := e.anchor + consumed
	if cur > frameCount {
		cur = frameCount
	}
	return cur
}

// Run polls status on the recommended interval until the context ends. The
// ticks drive ended detection and give observers position updates while
// playing.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := e.Status()
			if st.IsPlaying {
				e.notify(st)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close tears the engine down: mutes and closes the device and drops the
// track. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	if e.stream != nil {
		e.stream.Clear()
	}
	e.device.Mute()
	err := e.device.Close()

	e.buf = nil
	e.stream = nil
	e.state = Stopped
	e.mu.Unlock()

	return err
}

func (e *Engine) notify(st Status) {
	if e.onState != nil {
		e.onState(st)
	}
}
