// ABOUTME: Error taxonomy for the playback engine
// ABOUTME: All errors are synchronous and leave transport state unchanged
package player

import (
	"errors"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/bridge"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/output"
)

var (
	// ErrInvalidBuffer reports a malformed or empty sample buffer on load.
	ErrInvalidBuffer = errors.New("invalid sample buffer")

	// ErrNoBufferLoaded reports a transport call that needs a loaded track.
	ErrNoBufferLoaded = errors.New("no buffer loaded")

	// ErrClosed reports use of an engine after Close.
	ErrClosed = errors.New("engine closed")

	// ErrDeviceUnavailable is the device-open failure, surfaced unchanged
	// from the output package. Fatal to the engine instance; not retried.
	ErrDeviceUnavailable = output.ErrDeviceUnavailable

	// ErrConfig is the bridge configuration failure, surfaced unchanged
	// from the bridge package.
	ErrConfig = bridge.ErrConfig
)
