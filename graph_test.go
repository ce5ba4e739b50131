package framegraph_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/trace"
)

func TestResetLifecycle(t *testing.T) {
	g, dev := newGraph(t)

	if g.Generation() != 1 {
		t.Fatalf("initial generation = %d, want 1", g.Generation())
	}
	// Nothing declared: Reset is a no-op.
	mustReset(t, g)
	if g.Generation() != 1 {
		t.Errorf("generation after empty Reset = %d, want 1", g.Generation())
	}

	for frame := uint32(1); frame <= 3; frame++ {
		_, v := image(g, "target")
		g.AddPass("draw", framegraph.QueueGraphics, usages(write(v)), nil)
		mustExecute(t, g, v, present)
		mustReset(t, g)
		mustReset(t, g)
		if g.Generation() != frame+1 {
			t.Errorf("generation after frame %d = %d, want %d", frame, g.Generation(), frame+1)
		}
		if imgs, bufs, views, cmds := dev.Live(); imgs+bufs+views+cmds != 0 {
			t.Errorf("frame %d left %d images, %d buffers, %d views, %d command buffers alive",
				frame, imgs, bufs, views, cmds)
		}
	}
	if dev.Allocations() != 3 {
		t.Errorf("allocations = %d, want one per frame", dev.Allocations())
	}
}

func TestStaleHandle(t *testing.T) {
	g, _ := newGraph(t)

	res, v := image(g, "old")
	g.AddPass("draw", framegraph.QueueGraphics, usages(write(v)), nil)
	mustExecute(t, g, v, framegraph.Access{})
	mustReset(t, g)

	expectContract(t, func() { g.CreateImageView(res, framegraph.ImageViewDesc{}) })
	expectContract(t, func() {
		g.AddPass("late", framegraph.QueueGraphics, usages(read(v)), nil)
	})
}

func TestContractViolations(t *testing.T) {
	tests := []struct {
		name string
		fn   func(g *framegraph.Graph)
	}{
		{
			name: "declare after execute",
			fn: func(g *framegraph.Graph) {
				_, v := image(g, "a")
				g.AddPass("p", framegraph.QueueGraphics, usages(write(v)), nil)
				_ = g.Execute(v, framegraph.Access{}, nil)
				image(g, "b")
			},
		},
		{
			name: "execute twice",
			fn: func(g *framegraph.Graph) {
				_, v := image(g, "a")
				g.AddPass("p", framegraph.QueueGraphics, usages(write(v)), nil)
				_ = g.Execute(v, framegraph.Access{}, nil)
				_ = g.Execute(v, framegraph.Access{}, nil)
			},
		},
		{
			name: "reset with pending declarations",
			fn: func(g *framegraph.Graph) {
				image(g, "a")
				_ = g.Reset()
			},
		},
		{
			name: "same subresource twice in one pass",
			fn: func(g *framegraph.Graph) {
				_, v := image(g, "a")
				g.AddPass("p", framegraph.QueueGraphics, usages(read(v), write(v)), nil)
			},
		},
		{
			name: "overlapping views in one pass",
			fn: func(g *framegraph.Graph) {
				res := g.CreateImage(framegraph.ImageDesc{Label: "a", Width: 8, Height: 8, MipLevels: 2})
				all := g.CreateImageView(res, framegraph.ImageViewDesc{})
				top := g.CreateImageView(res, framegraph.ImageViewDesc{MipCount: 1})
				g.AddPass("p", framegraph.QueueGraphics, usages(read(all), write(top)), nil)
			},
		},
		{
			name: "view mip out of range",
			fn: func(g *framegraph.Graph) {
				res, _ := image(g, "a")
				g.CreateImageView(res, framegraph.ImageViewDesc{BaseMip: 1})
			},
		},
		{
			name: "buffer view beyond end",
			fn: func(g *framegraph.Graph) {
				res, _ := buffer(g, "a", 16)
				g.CreateBufferView(res, framegraph.BufferViewDesc{Offset: 8, Size: 16})
			},
		},
		{
			name: "image view of buffer",
			fn: func(g *framegraph.Graph) {
				res, _ := buffer(g, "a", 16)
				g.CreateImageView(res, framegraph.ImageViewDesc{})
			},
		},
		{
			name: "null handle",
			fn: func(g *framegraph.Graph) {
				g.CreateImageView(framegraph.ResourceID(framegraph.InvalidID), framegraph.ImageViewDesc{})
			},
		},
		{
			name: "zero sized image",
			fn: func(g *framegraph.Graph) {
				g.CreateImage(framegraph.ImageDesc{Label: "empty"})
			},
		},
		{
			name: "unknown queue",
			fn: func(g *framegraph.Graph) {
				g.AddPass("p", framegraph.QueueCount, nil, nil)
			},
		},
		{
			name: "clear on imported image",
			fn: func(g *framegraph.Graph) {
				desc := framegraph.ImageDesc{Label: "sc", Width: 8, Height: 8, ClearOnFirstUse: true}
				g.ImportImage(framegraph.NewExternalImage(&trace.Image{ID: 1}, desc, framegraph.Access{}, framegraph.QueueGraphics))
			},
		},
		{
			name: "clear on imported buffer",
			fn: func(g *framegraph.Graph) {
				g.ImportBuffer(&framegraph.ExternalBuffer{
					Buffer: &trace.Buffer{ID: 1},
					Desc:   framegraph.BufferDesc{Label: "b", Size: 16, ClearOnFirstUse: true},
				})
			},
		},
		{
			name: "plan before execute",
			fn: func(g *framegraph.Graph) {
				g.Plan()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGraph(t)
			expectContract(t, func() { tt.fn(g) })
		})
	}
}

func TestTimings(t *testing.T) {
	g, _ := newGraph(t, framegraph.WithTiming(true))

	_, av := image(g, "A")
	_, bv := image(g, "B")
	g.AddPass("first", framegraph.QueueGraphics, usages(write(av)), noteFn("first"))
	g.AddPass("second", framegraph.QueueGraphics, usages(read(av), write(bv)), noteFn("second"))
	mustExecute(t, g, bv, present)

	if n := len(g.Timings()); n != 0 {
		t.Errorf("timings before Reset = %d, want 0", n)
	}
	mustReset(t, g)

	timings := g.Timings()
	if len(timings) != 2 {
		t.Fatalf("timings = %d, want 2", len(timings))
	}
	for i, want := range []string{"first", "second"} {
		pt := timings[i]
		if pt.Name != want {
			t.Errorf("timings[%d].Name = %q, want %q", i, pt.Name, want)
		}
		if pt.WithoutSync <= 0 {
			t.Errorf("%s: WithoutSync = %v, want > 0", pt.Name, pt.WithoutSync)
		}
		if pt.WithSync < pt.WithoutSync {
			t.Errorf("%s: WithSync %v < WithoutSync %v", pt.Name, pt.WithSync, pt.WithoutSync)
		}
	}
	// second has a barrier in front of it, so sync adds time.
	if timings[1].WithSync == timings[1].WithoutSync {
		t.Errorf("second: WithSync = WithoutSync = %v, want barrier time included", timings[1].WithSync)
	}
}

func TestTimingDisabledWithoutTimestamps(t *testing.T) {
	dev := trace.New()
	dev.TimestampPeriodNS = 0
	g := framegraph.New(dev, framegraph.WithTiming(true))
	defer g.Close()

	_, v := image(g, "A")
	g.AddPass("draw", framegraph.QueueGraphics, usages(write(v)), noteFn("draw"))
	mustExecute(t, g, v, framegraph.Access{})
	mustReset(t, g)

	if n := len(g.Timings()); n != 0 {
		t.Errorf("timings = %d, want 0 when the device has no timestamps", n)
	}
}

func TestTimestampBudget(t *testing.T) {
	g, _ := newGraph(t, framegraph.WithTiming(true), framegraph.WithTimestampBudget(3))

	_, av := image(g, "A")
	_, bv := image(g, "B")
	g.AddPass("first", framegraph.QueueGraphics, usages(write(av)), nil)
	g.AddPass("second", framegraph.QueueGraphics, usages(read(av), write(bv)), nil)

	expectContract(t, func() { _ = g.Execute(bv, framegraph.Access{}, nil) })
}

func TestAllocationFailure(t *testing.T) {
	g, dev := newGraph(t)
	errOOM := errors.New("out of device memory")
	dev.FailCreate = func(label string) error {
		if strings.HasSuffix(label, "/B") {
			return errOOM
		}
		return nil
	}

	_, av := image(g, "A")
	_, bv := image(g, "B")
	g.AddPass("first", framegraph.QueueGraphics, usages(write(av)), nil)
	g.AddPass("second", framegraph.QueueGraphics, usages(read(av), write(bv)), nil)

	err := g.Execute(bv, framegraph.Access{}, nil)
	if !errors.Is(err, framegraph.ErrAllocation) {
		t.Fatalf("Execute error = %v, want ErrAllocation", err)
	}
	if !errors.Is(err, errOOM) {
		t.Errorf("Execute error = %v, want device cause wrapped", err)
	}
	if n := len(dev.Submissions()); n != 0 {
		t.Errorf("submissions after failed allocation = %d, want 0", n)
	}

	mustReset(t, g)
	if imgs, bufs, views, cmds := dev.Live(); imgs+bufs+views+cmds != 0 {
		t.Errorf("Reset left %d images, %d buffers, %d views, %d command buffers alive", imgs, bufs, views, cmds)
	}
}

// stuckDevice never lets a timeline retire while stuck is set.
type stuckDevice struct {
	*trace.Device
	stuck bool
}

func (d *stuckDevice) WaitTimeline(sem framegraph.Semaphore, value uint64, timeout time.Duration) error {
	if d.stuck {
		return trace.ErrTimeout
	}
	return d.Device.WaitTimeline(sem, value, timeout)
}

func TestRetireTimeout(t *testing.T) {
	dev := &stuckDevice{Device: trace.New(), stuck: true}
	g := framegraph.New(dev, framegraph.WithRetireTimeout(time.Millisecond))
	defer g.Close()

	_, v := image(g, "A")
	g.AddPass("draw", framegraph.QueueGraphics, usages(write(v)), nil)
	mustExecute(t, g, v, framegraph.Access{})

	err := g.Reset()
	if !errors.Is(err, framegraph.ErrRetireTimeout) {
		t.Fatalf("Reset error = %v, want ErrRetireTimeout", err)
	}
	if imgs, _, views, _ := dev.Live(); imgs != 1 || views != 1 {
		t.Errorf("live after timeout = %d images, %d views; want nothing destroyed", imgs, views)
	}
	if g.Generation() != 1 {
		t.Errorf("generation advanced to %d on timeout", g.Generation())
	}

	dev.stuck = false
	mustReset(t, g)
	if imgs, _, views, _ := dev.Live(); imgs+views != 0 {
		t.Errorf("live after retry = %d images, %d views", imgs, views)
	}
	if g.Generation() != 2 {
		t.Errorf("generation = %d, want 2", g.Generation())
	}
}

func TestRegistry(t *testing.T) {
	g, _ := newGraph(t)

	r, rv := image(g, "R")
	_, fv := image(g, "F")

	type seen struct {
		pass       string
		queue      framegraph.Queue
		first      bool
		last       bool
		lifetime   framegraph.Lifetime
		resourceOf framegraph.ResourceID
		image      *trace.Image
		view       *trace.ImageView
	}
	var got []seen
	probe := func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
		got = append(got, seen{
			pass:       reg.Pass(),
			queue:      reg.Queue(),
			first:      reg.FirstUse(r),
			last:       reg.LastUse(r),
			lifetime:   reg.Lifetime(r),
			resourceOf: reg.ResourceOf(rv),
			image:      reg.Image(rv).(*trace.Image),
			view:       reg.ImageView(rv).(*trace.ImageView),
		})
	}
	g.AddPass("produce", framegraph.QueueGraphics, usages(write(rv)), probe)
	g.AddPass("consume", framegraph.QueueGraphics, usages(read(rv), write(fv)), probe)
	mustExecute(t, g, fv, framegraph.Access{})

	if len(got) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(got))
	}
	want := []struct {
		pass        string
		first, last bool
	}{
		{"produce", true, false},
		{"consume", false, true},
	}
	for i, w := range want {
		s := got[i]
		if s.pass != w.pass || s.queue != framegraph.QueueGraphics {
			t.Errorf("callback %d ran for %s on %v", i, s.pass, s.queue)
		}
		if s.first != w.first || s.last != w.last {
			t.Errorf("%s: FirstUse = %v, LastUse = %v, want %v, %v", s.pass, s.first, s.last, w.first, w.last)
		}
		if s.lifetime != (framegraph.Lifetime{First: 0, Last: 1}) {
			t.Errorf("%s: lifetime = %+v", s.pass, s.lifetime)
		}
		if s.resourceOf != r {
			t.Errorf("%s: ResourceOf = %v, want %v", s.pass, s.resourceOf, r)
		}
		if s.image == nil || s.view == nil || s.view.Image != s.image {
			t.Errorf("%s: image %v, view %v do not match", s.pass, s.image, s.view)
		}
	}
	if got[0].image != got[1].image {
		t.Error("passes saw different physical images for one resource")
	}
	if got[0].image.Info.Label != "framegraph/R" {
		t.Errorf("image label = %q, want framegraph/R", got[0].image.Info.Label)
	}
}

func TestRegistryMapped(t *testing.T) {
	g, _ := newGraph(t)

	hb := g.CreateBuffer(framegraph.BufferDesc{Label: "readback", Size: 16, HostVisible: true})
	window := g.CreateBufferView(hb, framegraph.BufferViewDesc{Offset: 4, Size: 8})

	var backing *trace.Buffer
	g.AddPass("fill", framegraph.QueueTransfer,
		usages(framegraph.Use(window, framegraph.StateHostWrite, framegraph.StageHost)),
		func(_ framegraph.CommandBuffer, reg *framegraph.Registry) {
			mem, err := reg.Mapped(window)
			if err != nil {
				t.Errorf("Mapped failed: %v", err)
				return
			}
			if len(mem) != 8 {
				t.Errorf("mapped length = %d, want 8", len(mem))
			}
			for i := range mem {
				mem[i] = 0xAB
			}
			backing = reg.Buffer(window).(*trace.Buffer)
		})
	mustExecute(t, g, window, framegraph.Access{})

	if backing == nil {
		t.Fatal("fill pass did not run")
	}
	want := []byte{0, 0, 0, 0, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0, 0, 0, 0}
	if !bytes.Equal(backing.Memory, want) {
		t.Errorf("buffer memory = %x, want %x", backing.Memory, want)
	}
	if backing.Info.Usage&gputypes.BufferUsageMapWrite == 0 {
		t.Errorf("buffer usage %v lacks MapWrite", backing.Info.Usage)
	}
}

func TestRegistryMappedDeviceLocal(t *testing.T) {
	g, _ := newGraph(t)

	_, v := buffer(g, "gpu-only", 16)
	g.AddPass("fill", framegraph.QueueTransfer,
		usages(framegraph.Use(v, framegraph.StateCopyDst, framegraph.StageTransfer)),
		func(_ framegraph.CommandBuffer, reg *framegraph.Registry) {
			_, _ = reg.Mapped(v)
		})
	expectContract(t, func() { _ = g.Execute(v, framegraph.Access{}, nil) })
}

func TestAllocationUsageFlags(t *testing.T) {
	g, dev := newGraph(t)

	_, av := image(g, "A")
	_, iv := buffer(g, "args", 64)
	_, fv := image(g, "F")
	g.AddPass("gen", framegraph.QueueGraphics,
		usages(write(av), framegraph.Use(iv, computeWrite.State, computeWrite.Stages)), nil)
	g.AddPass("draw", framegraph.QueueGraphics,
		usages(read(av),
			framegraph.Use(iv, framegraph.StateIndirectArgument, framegraph.StageDrawIndirect),
			write(fv)),
		nil)
	fp := mustExecute(t, g, fv, framegraph.Access{State: framegraph.StateCopySrc, Stages: framegraph.StageTransfer})
	if len(fp.Passes) != 2 {
		t.Fatalf("passes = %v", passNames(fp))
	}

	wantImg := map[string]gputypes.TextureUsage{
		"framegraph/A": gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		"framegraph/F": gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}
	live := dev.LiveImages()
	if len(live) != len(wantImg) {
		t.Fatalf("live images = %d, want %d", len(live), len(wantImg))
	}
	for _, info := range live {
		if want := wantImg[info.Label]; info.Usage != want {
			t.Errorf("%s usage = %v, want %v", info.Label, info.Usage, want)
		}
	}
}

func TestObserverAndStats(t *testing.T) {
	var frames []framegraph.FrameStats
	g, _ := newGraph(t,
		framegraph.WithLabel("main"),
		framegraph.WithObserver(framegraph.ObserverFunc(func(s framegraph.FrameStats) {
			frames = append(frames, s)
		})))

	m := declareMixed(g)
	mustExecute(t, g, m.outView, present)

	want := framegraph.FrameStats{
		Label:           "main",
		Generation:      1,
		DeclaredPasses:  7,
		CulledPasses:    1,
		Resources:       7,
		CulledResources: 1,
		Allocations:     6,
		Views:           6,
		Batches:         4,
		Handoffs:        2,
		Submissions:     4,
	}
	got := g.Stats()
	want.Barriers = got.Barriers
	if got != want {
		t.Errorf("Stats() = %+v\nwant       %+v", got, want)
	}
	if got.Barriers == 0 {
		t.Error("no barriers counted")
	}
	if len(frames) != 1 || frames[0] != got {
		t.Errorf("observer saw %+v, want one frame equal to Stats()", frames)
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	framegraph.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer framegraph.SetLogger(nil)

	g, _ := newGraph(t, framegraph.WithLabel("logged"))
	_, v := image(g, "A")
	g.AddPass("draw", framegraph.QueueGraphics, usages(write(v)), nil)
	mustExecute(t, g, v, framegraph.Access{})

	out := buf.String()
	if !strings.Contains(out, "frame executed") || !strings.Contains(out, "label=logged") {
		t.Errorf("debug log = %q, want frame summary", out)
	}
}
