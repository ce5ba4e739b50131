package trace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph"
)

// Trace device errors.
var (
	// ErrWaitUnsatisfied is returned by Submit when a wait names a value its
	// timeline has not reached. In a correctly planned frame every wait
	// targets an earlier submission, so this denotes a planning bug.
	ErrWaitUnsatisfied = errors.New("trace: semaphore wait not satisfied at submit")

	// ErrTimeout is returned by WaitTimeline when the value was never signalled.
	ErrTimeout = errors.New("trace: timeline wait timed out")

	// ErrNotHostVisible is returned by MapBuffer for device-local buffers.
	ErrNotHostVisible = errors.New("trace: buffer is not host visible")

	// ErrRecordingEnded is returned by End on a command buffer that already ended.
	ErrRecordingEnded = errors.New("trace: command buffer already ended")
)

// tickPerCommand is how far the fake GPU clock advances per command.
const tickPerCommand = 1000

// Device is a software framegraph.Device. It is safe for concurrent use,
// though a framegraph.Graph drives it from one goroutine.
type Device struct {
	mu sync.Mutex

	nextID int
	clock  uint64

	imageCreates  int
	bufferCreates int
	liveImages    map[*Image]struct{}
	liveBuffers   map[*Buffer]struct{}
	liveViews     int
	liveCmds      int
	submissions   []Submission

	// FailCreate, when set, is consulted before every image or buffer
	// allocation; a non-nil result is returned as the allocation error.
	FailCreate func(label string) error

	// TimestampPeriodNS is reported by TimestampPeriod. Zero disables timing.
	TimestampPeriodNS float64
}

var _ framegraph.Device = (*Device)(nil)

// New creates a trace device with a 1ns timestamp period.
func New() *Device {
	return &Device{
		liveImages:        make(map[*Image]struct{}),
		liveBuffers:       make(map[*Buffer]struct{}),
		TimestampPeriodNS: 1,
	}
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

// CreateImage implements framegraph.Device.
func (d *Device) CreateImage(info *framegraph.ImageCreateInfo) (framegraph.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate != nil {
		if err := d.FailCreate(info.Label); err != nil {
			return nil, err
		}
	}
	img := &Image{ID: d.id(), Info: *info}
	d.imageCreates++
	d.liveImages[img] = struct{}{}
	return img, nil
}

// DestroyImage implements framegraph.Device.
func (d *Device) DestroyImage(img framegraph.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.liveImages, img.(*Image))
}

// CreateBuffer implements framegraph.Device.
func (d *Device) CreateBuffer(info *framegraph.BufferCreateInfo) (framegraph.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate != nil {
		if err := d.FailCreate(info.Label); err != nil {
			return nil, err
		}
	}
	buf := &Buffer{ID: d.id(), Info: *info}
	if info.HostVisible {
		buf.Memory = make([]byte, info.Size)
	}
	d.bufferCreates++
	d.liveBuffers[buf] = struct{}{}
	return buf, nil
}

// DestroyBuffer implements framegraph.Device.
func (d *Device) DestroyBuffer(buf framegraph.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.liveBuffers, buf.(*Buffer))
}

// CreateImageView implements framegraph.Device.
func (d *Device) CreateImageView(img framegraph.Image, info *framegraph.ImageViewCreateInfo) (framegraph.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveViews++
	return &ImageView{ID: d.id(), Image: img.(*Image), Info: *info}, nil
}

// DestroyImageView implements framegraph.Device.
func (d *Device) DestroyImageView(framegraph.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveViews--
}

// CreateBufferView implements framegraph.Device.
func (d *Device) CreateBufferView(buf framegraph.Buffer, info *framegraph.BufferViewCreateInfo) (framegraph.BufferView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveViews++
	return &BufferView{ID: d.id(), Buffer: buf.(*Buffer), Info: *info}, nil
}

// DestroyBufferView implements framegraph.Device.
func (d *Device) DestroyBufferView(framegraph.BufferView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveViews--
}

// MapBuffer implements framegraph.Device.
func (d *Device) MapBuffer(buf framegraph.Buffer) ([]byte, error) {
	b := buf.(*Buffer)
	if b.Memory == nil {
		return nil, ErrNotHostVisible
	}
	return b.Memory, nil
}

// CreateTimeline implements framegraph.Device.
func (d *Device) CreateTimeline(q framegraph.Queue) (framegraph.Semaphore, error) {
	return &Timeline{Queue: q}, nil
}

// DestroyTimeline implements framegraph.Device.
func (d *Device) DestroyTimeline(framegraph.Semaphore) {}

// WaitTimeline implements framegraph.Device. Work executes at submit, so a
// value not yet reached will never be reached.
func (d *Device) WaitTimeline(sem framegraph.Semaphore, value uint64, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tl := sem.(*Timeline)
	if tl.Value < value {
		return fmt.Errorf("%w: %v timeline at %d, want %d", ErrTimeout, tl.Queue, tl.Value, value)
	}
	return nil
}

// NewCommandBuffer implements framegraph.Device.
func (d *Device) NewCommandBuffer(q framegraph.Queue, label string) (framegraph.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveCmds++
	return &CommandBuffer{Queue: q, Label: label}, nil
}

// FreeCommandBuffer implements framegraph.Device.
func (d *Device) FreeCommandBuffer(framegraph.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveCmds--
}

// Submit implements framegraph.Device. The commands execute immediately.
func (d *Device) Submit(q framegraph.Queue, cmd framegraph.CommandBuffer, waits []framegraph.SemaphoreWait, signal framegraph.SemaphoreSignal) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb := cmd.(*CommandBuffer)
	if cb.Queue != q {
		return fmt.Errorf("trace: command buffer %q recorded for %v submitted to %v", cb.Label, cb.Queue, q)
	}
	for _, w := range waits {
		if tl, ok := w.Semaphore.(*Timeline); ok && tl.Value < w.Value {
			return fmt.Errorf("%w: %v timeline at %d, want %d", ErrWaitUnsatisfied, tl.Queue, tl.Value, w.Value)
		}
	}

	for _, c := range cb.Commands {
		d.clock += tickPerCommand
		if c.Kind == CmdTimestamp {
			c.Pool.Stamps[c.Slot] = d.clock
		}
	}

	if signal.Semaphore != nil {
		tl := signal.Semaphore.(*Timeline)
		if signal.Value <= tl.Value {
			return fmt.Errorf("trace: %v timeline signalled %d after %d", tl.Queue, signal.Value, tl.Value)
		}
		tl.Value = signal.Value
	}

	d.submissions = append(d.submissions, Submission{
		Queue:    q,
		Label:    cb.Label,
		Waits:    append([]framegraph.SemaphoreWait(nil), waits...),
		Signal:   signal,
		Commands: cb.Commands,
	})
	return nil
}

// CreateQueryPool implements framegraph.Device.
func (d *Device) CreateQueryPool(count int) (framegraph.QueryPool, error) {
	return &QueryPool{Stamps: make([]uint64, count)}, nil
}

// DestroyQueryPool implements framegraph.Device.
func (d *Device) DestroyQueryPool(framegraph.QueryPool) {}

// ReadTimestamps implements framegraph.Device.
func (d *Device) ReadTimestamps(pool framegraph.QueryPool, count int) ([]uint64, error) {
	p := pool.(*QueryPool)
	if count > len(p.Stamps) {
		return nil, fmt.Errorf("trace: read %d timestamps from pool of %d", count, len(p.Stamps))
	}
	return append([]uint64(nil), p.Stamps[:count]...), nil
}

// TimestampPeriod implements framegraph.Device.
func (d *Device) TimestampPeriod() float64 { return d.TimestampPeriodNS }

// Submissions returns every submission executed so far.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// ClearSubmissions forgets recorded submissions.
func (d *Device) ClearSubmissions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submissions = nil
}

// Allocations returns how many images and buffers were ever created.
func (d *Device) Allocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.imageCreates + d.bufferCreates
}

// Live returns the number of images, buffers, views and command buffers
// currently alive.
func (d *Device) Live() (images, buffers, views, cmds int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.liveImages), len(d.liveBuffers), d.liveViews, d.liveCmds
}

// LiveImages returns the create infos of every live image.
func (d *Device) LiveImages() []framegraph.ImageCreateInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]framegraph.ImageCreateInfo, 0, len(d.liveImages))
	for img := range d.liveImages {
		out = append(out, img.Info)
	}
	return out
}
