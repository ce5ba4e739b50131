package trace

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

// Backend exposes the trace device through the backend registry.
type Backend struct {
	dev *Device
}

func init() {
	backend.Register(backend.BackendTrace, func() backend.DeviceBackend {
		return &Backend{}
	})
}

// Name implements backend.DeviceBackend.
func (b *Backend) Name() string { return backend.BackendTrace }

// Open implements backend.DeviceBackend.
func (b *Backend) Open() (framegraph.Device, error) {
	b.dev = New()
	return b.dev, nil
}

// Close implements backend.DeviceBackend.
func (b *Backend) Close() { b.dev = nil }

// Device returns the opened trace device, or nil before Open.
func (b *Backend) Device() *Device { return b.dev }
