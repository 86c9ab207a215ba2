// ABOUTME: JSON message types for the remote control protocol
// ABOUTME: Commands flow client to server, status flows server to client
package remote

import "encoding/json"

// Message is the envelope for every frame on the wire.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command types accepted from clients.
const (
	TypePlay   = "play"
	TypePause  = "pause"
	TypeStop   = "stop"
	TypeSeek   = "seek"
	TypeVolume = "volume"
	TypeStatus = "status"
)

// TypeError is sent back when a command fails.
const TypeError = "error"

// SeekPayload carries the seek target in seconds.
type SeekPayload struct {
	Position float64 `json:"position"`
}

// VolumePayload carries the gain in [0, 1].
type VolumePayload struct {
	Volume float64 `json:"volume"`
}

// StatusPayload is the full transport snapshot broadcast to clients.
type StatusPayload struct {
	State    string  `json:"state"`
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Volume   float64 `json:"volume"`
	Track    string  `json:"track,omitempty"`
}

// ErrorPayload describes a failed command.
type ErrorPayload struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}
