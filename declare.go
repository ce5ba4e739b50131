package framegraph

// PassOption configures a pass at declaration.
type PassOption func(*pass)

// ForceExecution keeps a pass alive even when nothing observable depends on
// its writes, e.g. a pass that only reads back to the host. The producers
// of everything it reads survive with it.
func ForceExecution() PassOption {
	return func(p *pass) {
		p.force = true
	}
}

func (g *Graph) assertDeclaring(op string) {
	assert(g.phase == phaseReady, "%s called in phase %v", op, g.phase)
}

// CreateImage declares a transient image. No memory is allocated until
// Execute finds that the image survives culling.
func (g *Graph) CreateImage(desc ImageDesc) ResourceID {
	g.assertDeclaring("CreateImage")
	desc.normalize()
	assert(desc.Width > 0 && desc.Height > 0, "image %q has zero extent", desc.Label)
	return g.addResource(resource{kind: KindImage, image: desc})
}

// CreateBuffer declares a transient buffer.
func (g *Graph) CreateBuffer(desc BufferDesc) ResourceID {
	g.assertDeclaring("CreateBuffer")
	assert(desc.Size > 0, "buffer %q has zero size", desc.Label)
	return g.addResource(resource{kind: KindBuffer, buffer: desc})
}

// ImportImage wraps an externally owned image. ext must stay valid until
// the generation is reset; its States are updated at the end of Execute.
func (g *Graph) ImportImage(ext *ExternalImage) ResourceID {
	g.assertDeclaring("ImportImage")
	assert(ext != nil && ext.Image != nil, "ImportImage with nil image")
	ext.Desc.normalize()
	assert(len(ext.States) == int(ext.Desc.MipLevels*ext.Desc.ArrayLayers),
		"imported image %q tracks %d states for %d subresources",
		ext.Desc.Label, len(ext.States), ext.Desc.MipLevels*ext.Desc.ArrayLayers)
	assert(!ext.Desc.ClearOnFirstUse, "imported image %q sets ClearOnFirstUse", ext.Desc.Label)
	return g.addResource(resource{kind: KindImage, image: ext.Desc, extImage: ext, img: ext.Image})
}

// ImportBuffer wraps an externally owned buffer.
func (g *Graph) ImportBuffer(ext *ExternalBuffer) ResourceID {
	g.assertDeclaring("ImportBuffer")
	assert(ext != nil && ext.Buffer != nil, "ImportBuffer with nil buffer")
	assert(!ext.Desc.ClearOnFirstUse, "imported buffer %q sets ClearOnFirstUse", ext.Desc.Label)
	return g.addResource(resource{kind: KindBuffer, buffer: ext.Desc, extBuffer: ext, buf: ext.Buffer})
}

func (g *Graph) addResource(r resource) ResourceID {
	idx := int32(len(g.resources))
	r.firstSub = int32(len(g.subs))
	r.lifetime = Lifetime{First: -1, Last: -1}
	if r.kind == KindImage {
		r.subCount = int32(r.image.MipLevels * r.image.ArrayLayers)
		for layer := uint32(0); layer < r.image.ArrayLayers; layer++ {
			for mip := uint32(0); mip < r.image.MipLevels; mip++ {
				g.subs = append(g.subs, subresource{res: idx, mip: mip, layer: layer})
			}
		}
	} else {
		r.subCount = 1
		g.subs = append(g.subs, subresource{res: idx})
	}
	g.resources = append(g.resources, r)
	return g.resourceID(idx)
}

// CreateImageView declares a view over an image resource.
func (g *Graph) CreateImageView(res ResourceID, desc ImageViewDesc) ViewID {
	g.assertDeclaring("CreateImageView")
	ri := g.resourceIndex(res)
	r := &g.resources[ri]
	assert(r.kind == KindImage, "CreateImageView on %v resource %q", r.kind, r.label())

	if desc.Format == 0 {
		desc.Format = r.image.Format
	}
	if desc.MipCount == 0 {
		assert(desc.BaseMip < r.image.MipLevels, "view %q base mip %d out of range", desc.Label, desc.BaseMip)
		desc.MipCount = r.image.MipLevels - desc.BaseMip
	}
	if desc.LayerCount == 0 {
		assert(desc.BaseLayer < r.image.ArrayLayers, "view %q base layer %d out of range", desc.Label, desc.BaseLayer)
		desc.LayerCount = r.image.ArrayLayers - desc.BaseLayer
	}
	assert(desc.BaseMip+desc.MipCount <= r.image.MipLevels, "view %q mip range exceeds image %q", desc.Label, r.label())
	assert(desc.BaseLayer+desc.LayerCount <= r.image.ArrayLayers, "view %q layer range exceeds image %q", desc.Label, r.label())

	idx := int32(len(g.views))
	g.views = append(g.views, view{res: ri, kind: KindImage, image: desc})
	return g.viewID(idx)
}

// CreateBufferView declares a view over a buffer resource.
func (g *Graph) CreateBufferView(res ResourceID, desc BufferViewDesc) ViewID {
	g.assertDeclaring("CreateBufferView")
	ri := g.resourceIndex(res)
	r := &g.resources[ri]
	assert(r.kind == KindBuffer, "CreateBufferView on %v resource %q", r.kind, r.label())
	assert(desc.Offset < r.buffer.Size, "view %q offset %d beyond buffer %q", desc.Label, desc.Offset, r.label())
	if desc.Size == 0 {
		desc.Size = r.buffer.Size - desc.Offset
	}
	assert(desc.Offset+desc.Size <= r.buffer.Size, "view %q range exceeds buffer %q", desc.Label, r.label())

	idx := int32(len(g.views))
	g.views = append(g.views, view{res: ri, kind: KindBuffer, buffer: desc})
	return g.viewID(idx)
}

// AddPass declares a pass on queue q. Each usage is classified as a read or
// a write from its states; the pass is appended to the usage list of every
// subresource the usage's view covers. Usage order within a subresource is
// declaration order and is never changed.
//
// A pass must not reach the same subresource through two usages.
func (g *Graph) AddPass(name string, q Queue, usages []Usage, fn PassFunc, opts ...PassOption) PassID {
	g.assertDeclaring("AddPass")
	assert(q < QueueCount, "pass %q on unknown queue %d", name, q)

	idx := int32(len(g.passes))
	p := pass{
		name:    name,
		queue:   q,
		usages:  append([]Usage(nil), usages...),
		fn:      fn,
		clearOf: -1,
		pos:     -1,
		batch:   -1,
	}
	for _, opt := range opts {
		opt(&p)
	}

	var reads, writes []int32
	for _, u := range usages {
		vi := g.viewIndex(u.View)
		write := u.isWrite()
		rec := usageRecord{pass: idx, entry: u.Entry, exit: u.Exit, write: write}
		g.eachSub(vi, func(si int32) {
			s := &g.subs[si]
			if n := len(s.usages); n > 0 {
				assert(s.usages[n-1].pass != idx, "pass %q uses subresource %d of %q twice",
					name, si-g.resources[s.res].firstSub, g.resources[s.res].label())
			}
			s.usages = append(s.usages, rec)
			if write {
				writes = append(writes, si)
			} else {
				reads = append(reads, si)
			}
		})
	}
	p.reads = reads
	p.writes = writes

	g.passes = append(g.passes, p)
	g.declared = int32(len(g.passes))
	return g.passID(idx)
}

// eachSub calls fn with the global index of every subresource view vi covers.
func (g *Graph) eachSub(vi int32, fn func(si int32)) {
	v := &g.views[vi]
	r := &g.resources[v.res]
	if v.kind == KindBuffer {
		fn(r.firstSub)
		return
	}
	mips := r.image.MipLevels
	for layer := v.image.BaseLayer; layer < v.image.BaseLayer+v.image.LayerCount; layer++ {
		for mip := v.image.BaseMip; mip < v.image.BaseMip+v.image.MipCount; mip++ {
			fn(r.firstSub + int32(layer*mips+mip))
		}
	}
}

// markFinal flags every subresource of the final view as observable output.
func (g *Graph) markFinal(vi int32) {
	g.eachSub(vi, func(si int32) {
		g.subs[si].final = true
	})
}
