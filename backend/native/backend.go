package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

func init() {
	backend.Register(backend.BackendHAL, func() backend.DeviceBackend {
		return &Backend{api: gputypes.BackendVulkan}
	})
}

// Backend opens a standalone HAL device for the backend registry.
type Backend struct {
	api      gputypes.Backend
	instance hal.Instance
	device   hal.Device
	adapter  string
}

// Name implements backend.DeviceBackend.
func (b *Backend) Name() string { return backend.BackendHAL }

// Adapter returns the name of the opened adapter.
func (b *Backend) Adapter() string { return b.adapter }

// Open implements backend.DeviceBackend. It prefers a discrete or
// integrated GPU and falls back to the first adapter.
func (b *Backend) Open() (framegraph.Device, error) {
	api, ok := hal.GetBackend(b.api)
	if !ok {
		return nil, fmt.Errorf("%w: %v HAL backend not compiled in", backend.ErrBackendNotAvailable, b.api)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	dev, err := New(openDev.Device, openDev.Queue)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	b.instance = instance
	b.device = openDev.Device
	b.adapter = selected.Info.Name
	framegraph.Logger().Info("native: device opened", "adapter", b.adapter)
	return dev, nil
}

// Close implements backend.DeviceBackend.
func (b *Backend) Close() {
	if b.device != nil {
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}
