package framegraph

import "fmt"

// Registry resolves handles to physical objects for the pass being
// recorded. It is handed to every PassFunc and must not be retained.
type Registry struct {
	g    *Graph
	pass int32
}

func (r *Registry) current() *pass {
	assert(r.pass >= 0, "registry used outside a pass callback")
	return &r.g.passes[r.pass]
}

// Pass returns the name of the pass being recorded.
func (r *Registry) Pass() string { return r.current().name }

// Queue returns the queue of the pass being recorded.
func (r *Registry) Queue() Queue { return r.current().queue }

// ResourceOf returns the resource a view refers to.
func (r *Registry) ResourceOf(v ViewID) ResourceID {
	return r.g.resourceID(r.g.views[r.g.viewIndex(v)].res)
}

// Resource returns the physical image or buffer behind view v, or nil if
// the resource was culled.
func (r *Registry) Resource(v ViewID) any {
	res := &r.g.resources[r.g.views[r.g.viewIndex(v)].res]
	if res.kind == KindImage {
		return res.img
	}
	return res.buf
}

// View returns the physical image view or buffer view for v.
func (r *Registry) View(v ViewID) any {
	vw := &r.g.views[r.g.viewIndex(v)]
	if vw.kind == KindImage {
		return vw.imgView
	}
	return vw.bufView
}

// Image returns the physical image behind an image view. It is nil for
// culled resources.
func (r *Registry) Image(v ViewID) Image {
	vi := r.g.viewIndex(v)
	assert(r.g.views[vi].kind == KindImage, "Image called on buffer %v", v)
	return r.g.resources[r.g.views[vi].res].img
}

// Buffer returns the physical buffer behind a buffer view.
func (r *Registry) Buffer(v ViewID) Buffer {
	vi := r.g.viewIndex(v)
	assert(r.g.views[vi].kind == KindBuffer, "Buffer called on image %v", v)
	return r.g.resources[r.g.views[vi].res].buf
}

// ImageView returns the physical view for an image view handle.
func (r *Registry) ImageView(v ViewID) ImageView {
	vw := &r.g.views[r.g.viewIndex(v)]
	assert(vw.kind == KindImage, "ImageView called on buffer %v", v)
	return vw.imgView
}

// BufferView returns the physical range for a buffer view handle.
func (r *Registry) BufferView(v ViewID) BufferView {
	vw := &r.g.views[r.g.viewIndex(v)]
	assert(vw.kind == KindBuffer, "BufferView called on image %v", v)
	return vw.bufView
}

// FirstUse reports whether the current pass is the first surviving pass
// that uses res in this generation.
func (r *Registry) FirstUse(res ResourceID) bool {
	p := r.current()
	return r.g.resources[r.g.resourceIndex(res)].lifetime.First == int(p.pos)
}

// LastUse reports whether the current pass is the last surviving pass that
// uses res in this generation.
func (r *Registry) LastUse(res ResourceID) bool {
	p := r.current()
	return r.g.resources[r.g.resourceIndex(res)].lifetime.Last == int(p.pos)
}

// Lifetime returns the final-order lifetime of res.
func (r *Registry) Lifetime(res ResourceID) Lifetime {
	return r.g.resources[r.g.resourceIndex(res)].lifetime
}

// Mapped returns the CPU-visible bytes of a host-visible buffer view.
func (r *Registry) Mapped(v ViewID) ([]byte, error) {
	vw := &r.g.views[r.g.viewIndex(v)]
	assert(vw.kind == KindBuffer, "Mapped called on image %v", v)
	res := &r.g.resources[vw.res]
	assert(res.imported() || res.buffer.HostVisible, "Mapped called on device-local buffer %q", res.label())
	mem, err := r.g.dev.MapBuffer(res.buf)
	if err != nil {
		return nil, fmt.Errorf("framegraph: map %q: %w", res.label(), err)
	}
	end := vw.buffer.Offset + vw.buffer.Size
	if uint64(len(mem)) < end {
		return nil, fmt.Errorf("framegraph: mapping of %q is %d bytes, view needs %d", res.label(), len(mem), end)
	}
	return mem[vw.buffer.Offset:end], nil
}
