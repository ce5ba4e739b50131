package backend

import (
	"errors"

	"github.com/gogpu/framegraph"
)

// Backend name constants.
const (
	// BackendHAL is the name of the gogpu/wgpu HAL backend.
	BackendHAL = "hal"
	// BackendTrace is the name of the recording software backend.
	BackendTrace = "trace"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotOpen is returned when a backend is used before Open.
	ErrNotOpen = errors.New("backend: not open")
)

// DeviceBackend opens a framegraph.Device on some GPU API.
//
// Backends are registered with Register, usually from an init function in
// the backend package, and selected with Get or Default.
type DeviceBackend interface {
	// Name returns the backend identifier (e.g., "hal", "trace").
	Name() string

	// Open creates the device. It is called at most once per backend value.
	Open() (framegraph.Device, error)

	// Close releases the device and everything the backend created.
	// The device must not be used after Close.
	Close()
}
