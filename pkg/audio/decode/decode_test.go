// ABOUTME: Tests for the decode package
// ABOUTME: Covers WAV round-trip through go-audio, raw PCM and dispatch errors
package decode

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
)

// writeTestWAV writes a small 16-bit stereo WAV file and returns its path.
func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)

	data := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		v := int(16000 * math.Sin(2*math.Pi*440*float64(i)/44100))
		data[i*2] = v
		data[i*2+1] = v
	}

	buf := &gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestWAVFileRoundTrip(t *testing.T) {
	path := writeTestWAV(t, 1000)

	buf, err := WAVFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if buf.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", buf.Channels)
	}
	if buf.SampleRate != 44100 {
		t.Errorf("expected 44100 Hz, got %d", buf.SampleRate)
	}
	if buf.FrameCount() != 1000 {
		t.Errorf("expected 1000 frames, got %d", buf.FrameCount())
	}

	// Spot-check normalization: frame 25 of a 440Hz sine at 16000 amplitude.
	want := float32(16000*math.Sin(2*math.Pi*440*25/44100)) / 32767.0
	got := buf.Samples[50]
	if math.Abs(float64(got-want)) > 0.001 {
		t.Errorf("expected sample ~%f, got %f", want, got)
	}
}

func TestFromFileDispatch(t *testing.T) {
	path := writeTestWAV(t, 100)

	buf, meta, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if buf.FrameCount() != 100 {
		t.Errorf("expected 100 frames, got %d", buf.FrameCount())
	}
	if meta.Title != "tone" {
		t.Errorf("expected title from filename, got %q", meta.Title)
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, _, err := FromFile("/nonexistent/file.wav"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := FromFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestWAVInvalidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := WAVFile(path); err == nil {
		t.Error("expected error for invalid WAV data")
	}
}

func TestFLACInvalidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.flac")
	if err := os.WriteFile(path, []byte("definitely not a flac"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := FLACFile(path); err == nil {
		t.Error("expected error for invalid FLAC data")
	}
}

func TestPCMInt16(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], uint16(int16(16384)))
	negSample := int16(-16384)
	binary.LittleEndian.PutUint16(data[2:], uint16(negSample))
	binary.LittleEndian.PutUint16(data[4:], 0)
	binary.LittleEndian.PutUint16(data[6:], uint16(int16(32767)))

	buf, err := PCM(data, 2, 48000, audio.FormatInt16LE)
	if err != nil {
		t.Fatal(err)
	}

	if buf.FrameCount() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.FrameCount())
	}
	if buf.Samples[0] != 0.5 {
		t.Errorf("expected 0.5, got %f", buf.Samples[0])
	}
	if buf.Samples[1] != -0.5 {
		t.Errorf("expected -0.5, got %f", buf.Samples[1])
	}
}

func TestPCMFloat32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.75))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-0.75))

	buf, err := PCM(data, 1, 48000, audio.FormatFloat32LE)
	if err != nil {
		t.Fatal(err)
	}

	if buf.Samples[0] != 0.75 || buf.Samples[1] != -0.75 {
		t.Errorf("unexpected samples %v", buf.Samples)
	}
}

func TestPCMDropsPartialFrame(t *testing.T) {
	// 3 int16 samples for a stereo stream: the odd sample is dropped.
	buf, err := PCM(make([]byte, 6), 2, 48000, audio.FormatInt16LE)
	if err != nil {
		t.Fatal(err)
	}

	if buf.FrameCount() != 1 {
		t.Errorf("expected 1 frame, got %d", buf.FrameCount())
	}
}

func TestPCMRejectsBadFormat(t *testing.T) {
	if _, err := PCM(nil, 0, 48000, audio.FormatInt16LE); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := PCM(nil, 2, 0, audio.FormatInt16LE); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
