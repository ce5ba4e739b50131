package native

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// HAL device errors.
var (
	// ErrNilDevice is returned when a nil hal.Device or hal.Queue is passed.
	ErrNilDevice = errors.New("native: nil HAL device or queue")

	// ErrNoHALProvider is returned when a provider does not expose HAL types.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL device and queue")

	// ErrTimeout is returned when a fence wait does not complete in time.
	ErrTimeout = errors.New("native: fence wait timed out")

	// ErrForeignSemaphore is returned when a wait or signal names a
	// semaphore this device did not create.
	ErrForeignSemaphore = errors.New("native: semaphore not created by this backend")

	// ErrTimestampsUnsupported is returned by CreateQueryPool.
	ErrTimestampsUnsupported = errors.New("native: timestamp queries not supported")
)

// DefaultWaitTimeout bounds the CPU wait used to emulate cross-queue
// semaphore waits.
const DefaultWaitTimeout = 5 * time.Second

// Device implements framegraph.Device on a HAL device and queue.
type Device struct {
	mu          sync.Mutex
	device      hal.Device
	queue       hal.Queue
	waitTimeout time.Duration
}

var _ framegraph.Device = (*Device)(nil)

// New wraps a HAL device and queue. The caller keeps ownership of both.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{device: device, queue: queue, waitTimeout: DefaultWaitTimeout}, nil
}

// NewFromProvider wraps the HAL device shared by a provider (for example a
// gogpu window). The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return New(device, queue)
}

// SetWaitTimeout changes the timeout of emulated cross-queue waits.
func (d *Device) SetWaitTimeout(timeout time.Duration) {
	d.mu.Lock()
	d.waitTimeout = timeout
	d.mu.Unlock()
}

// CreateImage implements framegraph.Device.
func (d *Device) CreateImage(info *framegraph.ImageCreateInfo) (framegraph.Image, error) {
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: info.Label,
		Size: hal.Extent3D{
			Width:              info.Size.Width,
			Height:             info.Size.Height,
			DepthOrArrayLayers: info.Size.DepthOrArrayLayers,
		},
		MipLevelCount: info.MipLevels,
		SampleCount:   info.SampleCount,
		Dimension:     info.Dimension,
		Format:        info.Format,
		Usage:         info.Usage,
		ViewFormats:   info.ViewFormats,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", info.Label, err)
	}
	return &Texture{raw: raw, info: *info}, nil
}

// DestroyImage implements framegraph.Device.
func (d *Device) DestroyImage(img framegraph.Image) {
	d.device.DestroyTexture(img.(*Texture).raw)
}

// CreateBuffer implements framegraph.Device.
func (d *Device) CreateBuffer(info *framegraph.BufferCreateInfo) (framegraph.Buffer, error) {
	usage := info.Usage
	if info.HostVisible {
		usage |= gputypes.BufferUsageCopySrc
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: info.Label,
		Size:  info.Size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", info.Label, err)
	}
	return &Buffer{raw: raw, info: *info}, nil
}

// DestroyBuffer implements framegraph.Device.
func (d *Device) DestroyBuffer(buf framegraph.Buffer) {
	d.device.DestroyBuffer(buf.(*Buffer).raw)
}

// CreateImageView implements framegraph.Device.
func (d *Device) CreateImageView(img framegraph.Image, info *framegraph.ImageViewCreateInfo) (framegraph.ImageView, error) {
	tex := img.(*Texture)
	raw, err := d.device.CreateTextureView(tex.raw, &hal.TextureViewDescriptor{
		Label:           info.Label,
		Format:          info.Format,
		Dimension:       viewDimension(info.Dimension),
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    info.BaseMip,
		MipLevelCount:   info.MipCount,
		BaseArrayLayer:  info.BaseLayer,
		ArrayLayerCount: info.LayerCount,
	})
	if err != nil {
		return nil, fmt.Errorf("create view %q: %w", info.Label, err)
	}
	return &TextureView{raw: raw, texture: tex}, nil
}

// DestroyImageView implements framegraph.Device.
func (d *Device) DestroyImageView(v framegraph.ImageView) {
	d.device.DestroyTextureView(v.(*TextureView).raw)
}

// CreateBufferView implements framegraph.Device.
func (d *Device) CreateBufferView(buf framegraph.Buffer, info *framegraph.BufferViewCreateInfo) (framegraph.BufferView, error) {
	return &BufferRange{Buffer: buf.(*Buffer), Offset: info.Offset, Size: info.Size}, nil
}

// DestroyBufferView implements framegraph.Device.
func (d *Device) DestroyBufferView(framegraph.BufferView) {}

// MapBuffer implements framegraph.Device. The returned bytes are a copy of
// the buffer contents at the time of the call.
func (d *Device) MapBuffer(buf framegraph.Buffer) ([]byte, error) {
	b := buf.(*Buffer)
	data := make([]byte, b.info.Size)
	if err := d.queue.ReadBuffer(b.raw, 0, data); err != nil {
		return nil, fmt.Errorf("read back %q: %w", b.info.Label, err)
	}
	return data, nil
}

// CreateTimeline implements framegraph.Device.
func (d *Device) CreateTimeline(q framegraph.Queue) (framegraph.Semaphore, error) {
	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create %v fence: %w", q, err)
	}
	return &timeline{queue: q, fence: fence}, nil
}

// DestroyTimeline implements framegraph.Device.
func (d *Device) DestroyTimeline(sem framegraph.Semaphore) {
	tl, err := asTimeline(sem)
	if err != nil {
		framegraph.Logger().Warn("native: destroy timeline", "error", err)
		return
	}
	d.device.DestroyFence(tl.fence)
}

func asTimeline(sem framegraph.Semaphore) (*timeline, error) {
	tl, ok := sem.(*timeline)
	if !ok || tl == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignSemaphore, sem)
	}
	return tl, nil
}

// WaitTimeline implements framegraph.Device.
func (d *Device) WaitTimeline(sem framegraph.Semaphore, value uint64, timeout time.Duration) error {
	tl, err := asTimeline(sem)
	if err != nil {
		return err
	}
	ok, err := d.device.Wait(tl.fence, value, timeout)
	if err != nil {
		return fmt.Errorf("wait %v fence: %w", tl.queue, err)
	}
	if !ok {
		return fmt.Errorf("%w: %v value %d", ErrTimeout, tl.queue, value)
	}
	return nil
}

// NewCommandBuffer implements framegraph.Device.
func (d *Device) NewCommandBuffer(q framegraph.Queue, label string) (framegraph.CommandBuffer, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &CommandBuffer{dev: d, queue: q, label: label, encoder: encoder}, nil
}

// FreeCommandBuffer implements framegraph.Device.
func (d *Device) FreeCommandBuffer(cmd framegraph.CommandBuffer) {
	cb := cmd.(*CommandBuffer)
	if cb.buf != nil {
		d.device.FreeCommandBuffer(cb.buf)
		cb.buf = nil
	} else if cb.encoder != nil {
		cb.encoder.DiscardEncoding()
	}
	cb.encoder = nil
	for _, v := range cb.scratchViews {
		d.device.DestroyTextureView(v)
	}
	cb.scratchViews = nil
}

// Submit implements framegraph.Device. Waits are satisfied on the CPU
// before the command buffer reaches the HAL queue.
func (d *Device) Submit(q framegraph.Queue, cmd framegraph.CommandBuffer, waits []framegraph.SemaphoreWait, signal framegraph.SemaphoreSignal) error {
	d.mu.Lock()
	timeout := d.waitTimeout
	d.mu.Unlock()

	for _, w := range waits {
		if err := d.WaitTimeline(w.Semaphore, w.Value, timeout); err != nil {
			return err
		}
	}

	cb := cmd.(*CommandBuffer)
	var (
		fence hal.Fence
		value uint64
	)
	if signal.Semaphore != nil {
		tl, err := asTimeline(signal.Semaphore)
		if err != nil {
			return err
		}
		fence, value = tl.fence, signal.Value
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cb.buf}, fence, value); err != nil {
		return fmt.Errorf("submit %s on %v: %w", cb.label, q, err)
	}
	return nil
}

// CreateQueryPool implements framegraph.Device.
func (d *Device) CreateQueryPool(int) (framegraph.QueryPool, error) {
	return nil, ErrTimestampsUnsupported
}

// DestroyQueryPool implements framegraph.Device.
func (d *Device) DestroyQueryPool(framegraph.QueryPool) {}

// ReadTimestamps implements framegraph.Device.
func (d *Device) ReadTimestamps(framegraph.QueryPool, int) ([]uint64, error) {
	return nil, ErrTimestampsUnsupported
}

// TimestampPeriod implements framegraph.Device.
func (d *Device) TimestampPeriod() float64 { return 0 }

func viewDimension(v framegraph.ViewDimension) gputypes.TextureViewDimension {
	switch v {
	case framegraph.ViewDimension1D:
		return gputypes.TextureViewDimension1D
	case framegraph.ViewDimension2D:
		return gputypes.TextureViewDimension2D
	case framegraph.ViewDimension2DArray:
		return gputypes.TextureViewDimension2DArray
	case framegraph.ViewDimensionCube:
		return gputypes.TextureViewDimensionCube
	case framegraph.ViewDimensionCubeArray:
		return gputypes.TextureViewDimensionCubeArray
	case framegraph.ViewDimension3D:
		return gputypes.TextureViewDimension3D
	}
	return gputypes.TextureViewDimensionUndefined
}
