// ABOUTME: Malgo-based playback device
// ABOUTME: Drives the pull source from the miniaudio data callback
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
	"github.com/gen2brain/malgo"
)

// Malgo is a playback device backed by miniaudio via malgo. The data
// callback runs on miniaudio's real-time thread; it pulls frames from the
// bound source and pads silence on underrun without blocking.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	tap      *analysis.Tap
	src      atomic.Pointer[sourceBox]
	scratch  []float32
	ready    bool
	muted    bool
}

// NewMalgo creates an unopened malgo device.
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open initializes the miniaudio context and playback device. miniaudio
// converts to the hardware format internally, so the negotiated format
// equals the requested one with float32 encoding.
func (m *Malgo) Open(requested audio.Format) (audio.Format, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return m.format, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return audio.Format{}, fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(requested.Channels)
	deviceConfig.SampleRate = uint32(requested.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	m.format = audio.Format{
		SampleRate: requested.SampleRate,
		Channels:   requested.Channels,
		Encoding:   audio.FormatFloat32LE,
	}
	m.tap = analysis.NewTap(m.format.Channels)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return audio.Format{}, fmt.Errorf("%w: init device: %v", ErrDeviceUnavailable, err)
	}

	m.malgoCtx = ctx
	m.device = device
	m.muted = true // device not started until Unmute
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (malgo)",
		m.format.SampleRate, m.format.Channels)

	return m.format, nil
}

// dataCallback fills the device buffer from the bound source. Runs on the
// real-time audio thread: no allocation after warm-up, no locks beyond the
// atomic source load.
func (m *Malgo) dataCallback(out []byte, frameCount uint32) {
	samples := int(frameCount) * m.format.Channels
	if cap(m.scratch) < samples {
		m.scratch = make([]float32, samples)
	}
	buf := m.scratch[:samples]
	for i := range buf {
		buf[i] = 0
	}

	if box := m.src.Load(); box != nil {
		box.src.Pull(buf)
	}

	encodeFrames(out[:samples*4], buf, audio.FormatFloat32LE)

	if m.tap != nil {
		m.tap.Feed(buf)
	}
}

// Bind attaches the pull source with a single atomic store.
func (m *Malgo) Bind(src PullSource) {
	m.src.Store(&sourceBox{src: src})
}

// Mute stops the device so the bound source is no longer drained.
func (m *Malgo) Mute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready && !m.muted {
		if err := m.device.Stop(); err != nil {
			log.Printf("malgo stop: %v", err)
		}
		m.muted = true
	}
}

// Unmute starts the device.
func (m *Malgo) Unmute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready && m.muted {
		if err := m.device.Start(); err != nil {
			log.Printf("malgo start: %v", err)
			return
		}
		m.muted = false
	}
}

// AnalysisTap returns the capture tap for this device.
func (m *Malgo) AnalysisTap() *analysis.Tap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tap
}

// Close releases the device and context. Idempotent.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil
	}

	m.device.Uninit()
	m.device = nil

	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("malgo context uninit: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil

	m.ready = false
	return nil
}
