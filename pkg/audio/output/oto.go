// ABOUTME: Oto-based playback device
// ABOUTME: Drives the pull source through oto's reader-driven player
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
	"github.com/ebitengine/oto/v3"
)

// Oto is a playback device backed by the oto library. Oto pulls audio by
// reading from an io.Reader on its own mixer thread; pullReader adapts that
// to the PullSource contract, padding silence on underrun so the reader
// never blocks the mixer.
type Oto struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
	reader *pullReader
	format audio.Format
	tap    *analysis.Tap
	ready  bool
	muted  bool
}

// NewOto creates an unopened oto device.
func NewOto() *Oto {
	return &Oto{}
}

// Open initializes the oto context. Oto accepts any rate/channel pair and
// converts internally, so the negotiated format equals the requested one
// with float32 encoding.
func (o *Oto) Open(requested audio.Format) (audio.Format, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		return o.format, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   requested.SampleRate,
		ChannelCount: requested.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return audio.Format{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.format = audio.Format{
		SampleRate: requested.SampleRate,
		Channels:   requested.Channels,
		Encoding:   audio.FormatFloat32LE,
	}
	o.tap = analysis.NewTap(o.format.Channels)
	o.reader = &pullReader{format: o.format, tap: o.tap}

	// The player exists from open; Mute/Unmute gate its clock.
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.muted = true
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (oto)",
		o.format.SampleRate, o.format.Channels)

	return o.format, nil
}

// Bind attaches the pull source. Safe while the mixer is reading; the swap
// is a single atomic pointer store.
func (o *Oto) Bind(src PullSource) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.reader != nil {
		o.reader.bind(src)
	}
}

// Mute stops the player clock so the bound source is no longer drained.
func (o *Oto) Mute() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready && !o.muted {
		o.player.Pause()
		o.muted = true
	}
}

// Unmute resumes the player clock.
func (o *Oto) Unmute() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready && o.muted {
		o.player.Play()
		o.muted = false
	}
}

// AnalysisTap returns the capture tap for this device.
func (o *Oto) AnalysisTap() *analysis.Tap {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tap
}

// Close releases the device. Idempotent.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return nil
	}

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("oto player close: %v", err)
		}
		o.player = nil
	}
	o.otoCtx.Suspend()
	o.ready = false

	return nil
}

// pullReader adapts a PullSource to io.Reader for oto. Read never returns
// an error and never blocks: frames the source cannot provide come back as
// silence. Read is only ever called from oto's mixer thread, so the scratch
// buffer needs no locking.
type pullReader struct {
	format  audio.Format
	tap     *analysis.Tap
	src     atomic.Pointer[sourceBox]
	scratch []float32
}

type sourceBox struct {
	src PullSource
}

func (r *pullReader) bind(src PullSource) {
	r.src.Store(&sourceBox{src: src})
}

func (r *pullReader) Read(p []byte) (int, error) {
	bytesPerFrame := r.format.BytesPerFrame()
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	samples := frames * r.format.Channels
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	buf := r.scratch[:samples]
	for i := range buf {
		buf[i] = 0
	}

	if box := r.src.Load(); box != nil {
		box.src.Pull(buf)
	}

	encodeFrames(p[:frames*bytesPerFrame], buf, r.format.Encoding)

	if r.tap != nil {
		r.tap.Feed(buf)
	}

	return frames * bytesPerFrame, nil
}
