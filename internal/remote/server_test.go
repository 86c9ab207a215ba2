// ABOUTME: Remote control server tests over a real WebSocket connection
// ABOUTME: Drives transport commands end to end against a null-device engine
package remote

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/output"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/player"
)

func newTestServer(t *testing.T) (*Server, *player.Engine, *websocket.Conn) {
	t.Helper()

	dev := output.NewNull(audio.Format{})
	engine, err := player.New(player.Config{
		Device:          dev,
		RequestedFormat: audio.Format{SampleRate: 48000, Channels: 1},
	})
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	samples := make([]float32, 48000)
	if _, err := engine.SubmitDecodedAudio(samples, 1, 48000); err != nil {
		t.Fatalf("SubmitDecodedAudio: %v", err)
	}

	srv := New(Config{Name: "test"}, engine)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return srv, engine, conn
}

func readStatus(t *testing.T, conn *websocket.Conn) StatusPayload {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != TypeStatus {
			continue
		}

		var st StatusPayload
		if err := json.Unmarshal(msg.Payload, &st); err != nil {
			t.Fatalf("unmarshal status: %v", err)
		}
		return st
	}
}

func sendCommand(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()

	msg := Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		msg.Payload = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConnectReceivesInitialStatus(t *testing.T) {
	_, _, conn := newTestServer(t)

	st := readStatus(t, conn)
	if st.State != "stopped" {
		t.Errorf("initial state = %q, want stopped", st.State)
	}
	if st.Duration != 1.0 {
		t.Errorf("duration = %v, want 1", st.Duration)
	}
	if st.Track == "" {
		t.Error("status missing track id")
	}
}

func TestPlayPauseCommands(t *testing.T) {
	_, engine, conn := newTestServer(t)
	readStatus(t, conn) // greeting

	sendCommand(t, conn, TypePlay, nil)
	st := readStatus(t, conn)
	if !st.Playing || st.State != "playing" {
		t.Fatalf("after play: %+v", st)
	}
	if engine.State() != player.Playing {
		t.Fatalf("engine state = %v, want Playing", engine.State())
	}

	sendCommand(t, conn, TypePause, nil)
	st = readStatus(t, conn)
	if st.State != "paused" {
		t.Fatalf("after pause: state = %q", st.State)
	}

	sendCommand(t, conn, TypeStop, nil)
	st = readStatus(t, conn)
	if st.State != "stopped" || st.Position != 0 {
		t.Fatalf("after stop: %+v", st)
	}
}

func TestSeekAndVolumeCommands(t *testing.T) {
	_, engine, conn := newTestServer(t)
	readStatus(t, conn)

	sendCommand(t, conn, TypeSeek, SeekPayload{Position: 0.5})
	st := readStatus(t, conn)
	if st.Position < 0.499 || st.Position > 0.501 {
		t.Errorf("position after seek = %v, want 0.5", st.Position)
	}

	sendCommand(t, conn, TypeVolume, VolumePayload{Volume: 0.3})
	st = readStatus(t, conn)
	if st.Volume != 0.3 {
		t.Errorf("volume = %v, want 0.3", st.Volume)
	}
	if engine.Volume() != 0.3 {
		t.Errorf("engine volume = %v, want 0.3", engine.Volume())
	}
}

func TestUnknownCommandReturnsError(t *testing.T) {
	_, _, conn := newTestServer(t)
	readStatus(t, conn)

	sendCommand(t, conn, "rewind-tape", nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != TypeError {
		t.Fatalf("reply type = %q, want error", msg.Type)
	}

	var p ErrorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if p.Command != "rewind-tape" {
		t.Errorf("error command = %q", p.Command)
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	srv, engine, conn := newTestServer(t)
	readStatus(t, conn)

	if err := engine.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	srv.Broadcast(engine.Status())

	st := readStatus(t, conn)
	if !st.Playing {
		t.Fatalf("broadcast status: %+v", st)
	}
}

func TestStatusCommand(t *testing.T) {
	_, _, conn := newTestServer(t)
	readStatus(t, conn)

	sendCommand(t, conn, TypeStatus, nil)
	st := readStatus(t, conn)
	if st.State != "stopped" {
		t.Errorf("state = %q, want stopped", st.State)
	}
}
