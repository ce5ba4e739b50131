package framegraph

import "github.com/gogpu/gputypes"

// ResourceKind tags a logical resource as image or buffer. The two kinds
// differ only in how subresources are addressed.
type ResourceKind uint8

// Resource kinds.
const (
	KindImage ResourceKind = iota + 1
	KindBuffer
)

func (k ResourceKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindBuffer:
		return "buffer"
	}
	return "kind?"
}

// ClearColor is the value written by an automatic clear of an image.
type ClearColor struct {
	R, G, B, A float64
}

// ImageDesc describes a transient or imported image.
// Zero Depth, MipLevels, ArrayLayers and SampleCount mean 1.
type ImageDesc struct {
	Label       string
	Format      gputypes.TextureFormat
	Dimension   gputypes.TextureDimension
	Width       uint32
	Height      uint32
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	SampleCount uint32

	// ClearOnFirstUse makes the compiler insert a clear pass right before
	// the first surviving pass that uses the image. Transient images only;
	// ImportImage rejects it.
	ClearOnFirstUse bool
	ClearColor      ClearColor
}

func (d *ImageDesc) normalize() {
	if d.Dimension == 0 {
		d.Dimension = gputypes.TextureDimension2D
	}
	if d.Depth == 0 {
		d.Depth = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.ArrayLayers == 0 {
		d.ArrayLayers = 1
	}
	if d.SampleCount == 0 {
		d.SampleCount = 1
	}
}

// BufferDesc describes a transient or imported buffer.
type BufferDesc struct {
	Label string
	Size  uint64

	// HostVisible requests memory the CPU can map; see Registry.Mapped.
	HostVisible bool

	// ClearOnFirstUse makes the compiler insert a zero fill before the first
	// surviving pass that uses the buffer. Transient buffers only;
	// ImportBuffer rejects it.
	ClearOnFirstUse bool
}

// ViewDimension is the dimensionality a view interprets an image with.
type ViewDimension uint8

// View dimensions. ViewDimensionDefault follows the image.
const (
	ViewDimensionDefault ViewDimension = iota
	ViewDimension1D
	ViewDimension2D
	ViewDimension2DArray
	ViewDimensionCube
	ViewDimensionCubeArray
	ViewDimension3D
)

// ImageViewDesc selects a typed subrange of an image. A zero Format keeps
// the image format; zero counts select all remaining mips or layers.
type ImageViewDesc struct {
	Label      string
	Format     gputypes.TextureFormat
	Dimension  ViewDimension
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// BufferViewDesc selects a byte range of a buffer. Zero Size selects the
// rest of the buffer.
type BufferViewDesc struct {
	Label  string
	Offset uint64
	Size   uint64
}

// ExternalState is the tracked state of one subresource of an imported
// resource: the access it was last left in, the queue that owns it and an
// optional value on that queue's timeline that must be reached first.
type ExternalState struct {
	Access Access
	Queue  Queue
	Ready  uint64
}

// ExternalImage is an image owned outside the graph. The caller keeps it
// across generations; the graph updates States at the end of every Execute
// so the next import starts from where this frame left off.
type ExternalImage struct {
	Image  Image
	Desc   ImageDesc
	States []ExternalState // one per mip×layer, layer-major
}

// NewExternalImage wraps img with every subresource in the same state.
func NewExternalImage(img Image, desc ImageDesc, initial Access, q Queue) *ExternalImage {
	desc.normalize()
	states := make([]ExternalState, desc.MipLevels*desc.ArrayLayers)
	for i := range states {
		states[i] = ExternalState{Access: initial, Queue: q}
	}
	return &ExternalImage{Image: img, Desc: desc, States: states}
}

// ExternalBuffer is a buffer owned outside the graph.
type ExternalBuffer struct {
	Buffer Buffer
	Desc   BufferDesc
	State  ExternalState
}

// ExternalWait is a semaphore value the first pass touching the final
// resource must wait for, such as a swapchain acquire.
type ExternalWait struct {
	Semaphore Semaphore
	Value     uint64
	Stages    Stage
}

// Lifetime is the inclusive range of final pass positions a resource is
// used in. First is -1 for a culled resource.
type Lifetime struct {
	First, Last int
}

// Alive reports whether the lifetime is non-empty.
func (l Lifetime) Alive() bool { return l.First >= 0 }

// Contains reports whether pos lies within the lifetime.
func (l Lifetime) Contains(pos int) bool { return l.First >= 0 && pos >= l.First && pos <= l.Last }
