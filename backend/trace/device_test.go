package trace

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
)

func TestBackendRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendTrace) {
		t.Fatalf("%q backend not registered", backend.BackendTrace)
	}
	b := backend.Get(backend.BackendTrace)
	tb, ok := b.(*Backend)
	if !ok {
		t.Fatalf("backend type = %T, want *Backend", b)
	}
	if tb.Device() != nil {
		t.Error("Device() non-nil before Open")
	}
	dev, err := tb.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if dev != tb.Device() {
		t.Error("Open returned a different device than Device()")
	}
	tb.Close()
	if tb.Device() != nil {
		t.Error("Device() non-nil after Close")
	}
}

func TestObjectLifecycle(t *testing.T) {
	d := New()

	img, err := d.CreateImage(&framegraph.ImageCreateInfo{Label: "color"})
	if err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	view, _ := d.CreateImageView(img, &framegraph.ImageViewCreateInfo{Label: "color"})
	buf, _ := d.CreateBuffer(&framegraph.BufferCreateInfo{Label: "host", Size: 32, HostVisible: true})
	bview, _ := d.CreateBufferView(buf, &framegraph.BufferViewCreateInfo{Offset: 8, Size: 8})

	if v := view.(*ImageView); v.Image != img.(*Image) {
		t.Error("image view does not reference its image")
	}
	if v := bview.(*BufferView); v.Buffer != buf.(*Buffer) || v.Info.Offset != 8 {
		t.Errorf("buffer view = %+v", v)
	}
	if imgs, bufs, views, _ := d.Live(); imgs != 1 || bufs != 1 || views != 2 {
		t.Errorf("live = %d images, %d buffers, %d views", imgs, bufs, views)
	}
	if n := len(d.LiveImages()); n != 1 {
		t.Errorf("LiveImages = %d, want 1", n)
	}

	d.DestroyImageView(view)
	d.DestroyBufferView(bview)
	d.DestroyImage(img)
	d.DestroyBuffer(buf)
	if imgs, bufs, views, _ := d.Live(); imgs+bufs+views != 0 {
		t.Errorf("live after destroy = %d images, %d buffers, %d views", imgs, bufs, views)
	}
	if d.Allocations() != 2 {
		t.Errorf("Allocations = %d, want 2", d.Allocations())
	}
}

func TestFailCreate(t *testing.T) {
	d := New()
	errOOM := errors.New("oom")
	d.FailCreate = func(label string) error {
		if label == "big" {
			return errOOM
		}
		return nil
	}
	if _, err := d.CreateImage(&framegraph.ImageCreateInfo{Label: "big"}); !errors.Is(err, errOOM) {
		t.Errorf("CreateImage error = %v, want %v", err, errOOM)
	}
	if _, err := d.CreateBuffer(&framegraph.BufferCreateInfo{Label: "big", Size: 4}); !errors.Is(err, errOOM) {
		t.Errorf("CreateBuffer error = %v, want %v", err, errOOM)
	}
	if _, err := d.CreateBuffer(&framegraph.BufferCreateInfo{Label: "small", Size: 4}); err != nil {
		t.Errorf("CreateBuffer(small) failed: %v", err)
	}
	if d.Allocations() != 1 {
		t.Errorf("Allocations = %d, want 1", d.Allocations())
	}
}

func TestMapBuffer(t *testing.T) {
	d := New()
	host, _ := d.CreateBuffer(&framegraph.BufferCreateInfo{Size: 16, HostVisible: true})
	local, _ := d.CreateBuffer(&framegraph.BufferCreateInfo{Size: 16})

	mem, err := d.MapBuffer(host)
	if err != nil || len(mem) != 16 {
		t.Errorf("MapBuffer(host) = %d bytes, %v", len(mem), err)
	}
	if _, err := d.MapBuffer(local); !errors.Is(err, ErrNotHostVisible) {
		t.Errorf("MapBuffer(local) error = %v, want ErrNotHostVisible", err)
	}
}

func TestSubmit(t *testing.T) {
	d := New()
	gfx, _ := d.CreateTimeline(framegraph.QueueGraphics)
	comp, _ := d.CreateTimeline(framegraph.QueueCompute)

	submit := func(q framegraph.Queue, waits []framegraph.SemaphoreWait, sig framegraph.SemaphoreSignal) error {
		cmd, _ := d.NewCommandBuffer(q, "cmd")
		cmd.(*CommandBuffer).Note("work")
		if err := cmd.End(); err != nil {
			t.Fatalf("End failed: %v", err)
		}
		defer d.FreeCommandBuffer(cmd)
		return d.Submit(q, cmd, waits, sig)
	}

	tests := []struct {
		name    string
		queue   framegraph.Queue
		waits   []framegraph.SemaphoreWait
		signal  framegraph.SemaphoreSignal
		wantErr error
	}{
		{
			name:   "signal graphics",
			queue:  framegraph.QueueGraphics,
			signal: framegraph.SemaphoreSignal{Semaphore: gfx, Value: 1},
		},
		{
			name:   "compute waits on reached value",
			queue:  framegraph.QueueCompute,
			waits:  []framegraph.SemaphoreWait{{Semaphore: gfx, Value: 1}},
			signal: framegraph.SemaphoreSignal{Semaphore: comp, Value: 1},
		},
		{
			name:    "wait on unreached value",
			queue:   framegraph.QueueGraphics,
			waits:   []framegraph.SemaphoreWait{{Semaphore: comp, Value: 2}},
			wantErr: ErrWaitUnsatisfied,
		},
		{
			name:  "foreign semaphore is not checked",
			queue: framegraph.QueueGraphics,
			waits: []framegraph.SemaphoreWait{{Semaphore: "swapchain", Value: 9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := submit(tt.queue, tt.waits, tt.signal)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := submit(framegraph.QueueGraphics, nil, framegraph.SemaphoreSignal{Semaphore: gfx, Value: 1}); err == nil {
		t.Error("Submit accepted a non-increasing signal")
	}

	if n := len(d.Submissions()); n != 3 {
		t.Errorf("submissions = %d, want 3", n)
	}
	d.ClearSubmissions()
	if n := len(d.Submissions()); n != 0 {
		t.Errorf("submissions after clear = %d", n)
	}
	if _, _, _, cmds := d.Live(); cmds != 0 {
		t.Errorf("live command buffers = %d", cmds)
	}
}

func TestSubmitWrongQueue(t *testing.T) {
	d := New()
	cmd, _ := d.NewCommandBuffer(framegraph.QueueCompute, "c")
	if err := d.Submit(framegraph.QueueGraphics, cmd, nil, framegraph.SemaphoreSignal{}); err == nil {
		t.Error("Submit accepted a command buffer recorded for another queue")
	}
}

func TestEndTwice(t *testing.T) {
	cmd := &CommandBuffer{}
	if err := cmd.End(); err != nil {
		t.Fatalf("first End failed: %v", err)
	}
	if err := cmd.End(); !errors.Is(err, ErrRecordingEnded) {
		t.Errorf("second End error = %v, want ErrRecordingEnded", err)
	}
}

func TestWaitTimeline(t *testing.T) {
	d := New()
	sem, _ := d.CreateTimeline(framegraph.QueueTransfer)
	sem.(*Timeline).Value = 4

	if err := d.WaitTimeline(sem, 4, time.Millisecond); err != nil {
		t.Errorf("WaitTimeline(4) failed: %v", err)
	}
	if err := d.WaitTimeline(sem, 5, time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("WaitTimeline(5) error = %v, want ErrTimeout", err)
	}
}

func TestTimestamps(t *testing.T) {
	d := New()
	pool, _ := d.CreateQueryPool(3)
	cmd, _ := d.NewCommandBuffer(framegraph.QueueGraphics, "t")
	cb := cmd.(*CommandBuffer)
	cb.WriteTimestamp(pool, 0)
	cb.Note("a")
	cb.Note("b")
	cb.WriteTimestamp(pool, 1)
	_ = cb.End()
	if err := d.Submit(framegraph.QueueGraphics, cmd, nil, framegraph.SemaphoreSignal{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	stamps, err := d.ReadTimestamps(pool, 2)
	if err != nil {
		t.Fatalf("ReadTimestamps failed: %v", err)
	}
	if got := stamps[1] - stamps[0]; got != 3*tickPerCommand {
		t.Errorf("elapsed = %d ticks, want %d", got, 3*tickPerCommand)
	}
	if _, err := d.ReadTimestamps(pool, 4); err == nil {
		t.Error("ReadTimestamps read past the pool")
	}
	if d.TimestampPeriod() != 1 {
		t.Errorf("TimestampPeriod = %v, want 1", d.TimestampPeriod())
	}
}
