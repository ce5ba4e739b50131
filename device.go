package framegraph

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Physical objects
//
// Backend objects are opaque to the graph. A backend returns its own types
// from Device and receives them back unchanged; pass callbacks obtain them
// through the Registry and assert to the backend's concrete types.

// Image is a backend image (texture).
type Image interface{}

// Buffer is a backend buffer.
type Buffer interface{}

// ImageView is a backend image view.
type ImageView interface{}

// BufferView is a backend buffer range.
type BufferView interface{}

// Semaphore is a backend timeline semaphore.
type Semaphore interface{}

// QueryPool is a backend timestamp query pool.
type QueryPool interface{}

// ImageCreateInfo is passed to Device.CreateImage. Usage is the union of
// every state the image is used in during the generation.
type ImageCreateInfo struct {
	Label       string
	Format      gputypes.TextureFormat
	Dimension   gputypes.TextureDimension
	Size        gputypes.Extent3D
	MipLevels   uint32
	SampleCount uint32
	Usage       gputypes.TextureUsage

	// ViewFormats lists formats views reinterpret the image as.
	ViewFormats []gputypes.TextureFormat

	// CubeCompatible is set when a view interprets layers as cube faces.
	CubeCompatible bool
}

// BufferCreateInfo is passed to Device.CreateBuffer.
type BufferCreateInfo struct {
	Label       string
	Size        uint64
	Usage       gputypes.BufferUsage
	HostVisible bool
}

// ImageViewCreateInfo is passed to Device.CreateImageView with all counts
// resolved.
type ImageViewCreateInfo struct {
	Label      string
	Format     gputypes.TextureFormat
	Dimension  ViewDimension
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// BufferViewCreateInfo is passed to Device.CreateBufferView with Size
// resolved.
type BufferViewCreateInfo struct {
	Label  string
	Offset uint64
	Size   uint64
}

// BarrierKind distinguishes plain transitions from the two halves of a
// queue ownership transfer.
type BarrierKind uint8

// Barrier kinds.
const (
	BarrierTransition BarrierKind = iota
	BarrierRelease
	BarrierAcquire
)

func (k BarrierKind) String() string {
	switch k {
	case BarrierTransition:
		return "transition"
	case BarrierRelease:
		return "release"
	case BarrierAcquire:
		return "acquire"
	}
	return "barrier?"
}

// Barrier is one state transition of one subresource.
//
// For BarrierRelease and BarrierAcquire, SrcQueue and DstQueue differ and
// Ticket is the timeline value the acquiring queue waits for. A release and
// its matching acquire carry the same Ticket.
type Barrier struct {
	Kind     BarrierKind
	Resource ResourceID

	// Exactly one of Image and Buffer is set.
	Image  Image
	Buffer Buffer

	// Mip and Layer address the image subresource. Zero for buffers.
	Mip   uint32
	Layer uint32

	Before   Access
	After    Access
	SrcQueue Queue
	DstQueue Queue
	Ticket   uint64
}

// SemaphoreWait makes a submission wait until Semaphore reaches Value
// before Stages execute.
type SemaphoreWait struct {
	Semaphore Semaphore
	Value     uint64
	Stages    Stage
}

// SemaphoreSignal makes a submission set Semaphore to Value on completion.
// A nil Semaphore means no signal.
type SemaphoreSignal struct {
	Semaphore Semaphore
	Value     uint64
}

// CommandBuffer records the commands of one batch.
type CommandBuffer interface {
	// Barriers records state transitions.
	Barriers(barriers []Barrier)

	// ClearImage clears every subresource of img.
	ClearImage(img Image, color ClearColor)

	// FillBuffer fills buf with a repeated 32-bit value.
	FillBuffer(buf Buffer, value uint32)

	// WriteTimestamp writes a GPU timestamp into slot index of pool.
	WriteTimestamp(pool QueryPool, index int)

	// End finishes recording.
	End() error
}

// Device is the GPU abstraction a Graph drives. Implementations live in
// the backend packages.
type Device interface {
	CreateImage(info *ImageCreateInfo) (Image, error)
	DestroyImage(img Image)
	CreateBuffer(info *BufferCreateInfo) (Buffer, error)
	DestroyBuffer(buf Buffer)
	CreateImageView(img Image, info *ImageViewCreateInfo) (ImageView, error)
	DestroyImageView(view ImageView)
	CreateBufferView(buf Buffer, info *BufferViewCreateInfo) (BufferView, error)
	DestroyBufferView(view BufferView)

	// MapBuffer returns the CPU mapping of a host-visible buffer.
	MapBuffer(buf Buffer) ([]byte, error)

	// CreateTimeline creates a timeline semaphore signalled by queue q.
	CreateTimeline(q Queue) (Semaphore, error)
	DestroyTimeline(sem Semaphore)

	// WaitTimeline blocks until sem reaches value or timeout expires.
	WaitTimeline(sem Semaphore, value uint64, timeout time.Duration) error

	NewCommandBuffer(q Queue, label string) (CommandBuffer, error)
	FreeCommandBuffer(cmd CommandBuffer)

	// Submit executes cmd on queue q after every wait is satisfied and
	// then applies signal.
	Submit(q Queue, cmd CommandBuffer, waits []SemaphoreWait, signal SemaphoreSignal) error

	CreateQueryPool(count int) (QueryPool, error)
	DestroyQueryPool(pool QueryPool)

	// ReadTimestamps returns the first count raw timestamps of pool.
	ReadTimestamps(pool QueryPool, count int) ([]uint64, error)

	// TimestampPeriod is the number of nanoseconds per timestamp tick.
	// Zero means the device cannot time passes.
	TimestampPeriod() float64
}
