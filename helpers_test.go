package framegraph_test

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/trace"
)

var (
	colorWrite   = framegraph.Access{State: framegraph.StateColorAttachment, Stages: framegraph.StageColorAttachmentOutput}
	fragRead     = framegraph.Access{State: framegraph.StateShaderRead, Stages: framegraph.StageFragmentShader}
	computeRead  = framegraph.Access{State: framegraph.StateStorageRead, Stages: framegraph.StageComputeShader}
	computeWrite = framegraph.Access{State: framegraph.StateStorageWrite, Stages: framegraph.StageComputeShader}
	present      = framegraph.Access{State: framegraph.StatePresent, Stages: framegraph.StageNone}
)

// newGraph creates a graph over a fresh trace device and closes it when
// the test ends.
func newGraph(t *testing.T, opts ...framegraph.Option) (*framegraph.Graph, *trace.Device) {
	t.Helper()
	dev := trace.New()
	g := framegraph.New(dev, opts...)
	t.Cleanup(func() {
		if err := g.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return g, dev
}

// image declares a 64x64 RGBA8 image and a full view of it.
func image(g *framegraph.Graph, label string) (framegraph.ResourceID, framegraph.ViewID) {
	res := g.CreateImage(framegraph.ImageDesc{
		Label:  label,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  64,
		Height: 64,
	})
	return res, g.CreateImageView(res, framegraph.ImageViewDesc{Label: label})
}

// buffer declares a buffer and a full view of it.
func buffer(g *framegraph.Graph, label string, size uint64) (framegraph.ResourceID, framegraph.ViewID) {
	res := g.CreateBuffer(framegraph.BufferDesc{Label: label, Size: size})
	return res, g.CreateBufferView(res, framegraph.BufferViewDesc{Label: label})
}

func write(v framegraph.ViewID) framegraph.Usage {
	return framegraph.Use(v, colorWrite.State, colorWrite.Stages)
}

func read(v framegraph.ViewID) framegraph.Usage {
	return framegraph.Use(v, fragRead.State, fragRead.Stages)
}

func usages(u ...framegraph.Usage) []framegraph.Usage { return u }

// noteFn returns a pass callback that marks the command stream with name.
func noteFn(name string) framegraph.PassFunc {
	return func(cmd framegraph.CommandBuffer, _ *framegraph.Registry) {
		cmd.(*trace.CommandBuffer).Note(name)
	}
}

func mustExecute(t *testing.T, g *framegraph.Graph, final framegraph.ViewID, access framegraph.Access) *framegraph.FramePlan {
	t.Helper()
	if err := g.Execute(final, access, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return g.Plan()
}

func mustReset(t *testing.T, g *framegraph.Graph) {
	t.Helper()
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
}

// expectContract runs fn and fails unless it panics with a
// *framegraph.ContractError.
func expectContract(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected contract violation panic, got none")
		}
		err, ok := r.(error)
		var ce *framegraph.ContractError
		if !ok || !errors.As(err, &ce) {
			t.Fatalf("panic value = %v (%T), want *ContractError", r, r)
		}
	}()
	fn()
}

func passNames(fp *framegraph.FramePlan) []string {
	names := make([]string, len(fp.Passes))
	for i, p := range fp.Passes {
		names[i] = p.Name
	}
	return names
}

func countKind(barriers []framegraph.Barrier, kind framegraph.BarrierKind, res framegraph.ResourceID) int {
	n := 0
	for _, b := range barriers {
		if b.Kind == kind && b.Resource == res {
			n++
		}
	}
	return n
}
