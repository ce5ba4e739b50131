package framegraph

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
)

// materialize allocates physical backing for every surviving transient
// resource and a physical view for every surviving view. It runs after
// compile because a resource's capability flags are only known once its
// whole surviving usage history has been seen.
func (g *Graph) materialize() error {
	g.accumulateFlags()

	for i := range g.resources {
		r := &g.resources[i]
		if !r.alive || r.imported() {
			continue
		}
		if err := g.allocate(r); err != nil {
			return err
		}
	}

	for i := range g.views {
		v := &g.views[i]
		if !v.alive {
			continue
		}
		r := &g.resources[v.res]
		if v.kind == KindImage {
			view, err := g.dev.CreateImageView(r.img, &ImageViewCreateInfo{
				Label:      g.objectLabel(v.image.Label),
				Format:     v.image.Format,
				Dimension:  v.image.Dimension,
				BaseMip:    v.image.BaseMip,
				MipCount:   v.image.MipCount,
				BaseLayer:  v.image.BaseLayer,
				LayerCount: v.image.LayerCount,
			})
			if err != nil {
				return fmt.Errorf("%w: image view %q of %q: %w", ErrAllocation, v.image.Label, r.label(), err)
			}
			v.imgView = view
			continue
		}
		view, err := g.dev.CreateBufferView(r.buf, &BufferViewCreateInfo{
			Label:  g.objectLabel(v.buffer.Label),
			Offset: v.buffer.Offset,
			Size:   v.buffer.Size,
		})
		if err != nil {
			return fmt.Errorf("%w: buffer view %q of %q: %w", ErrAllocation, v.buffer.Label, r.label(), err)
		}
		v.bufView = view
	}
	return nil
}

// accumulateFlags unions the capabilities implied by every surviving usage
// of each resource, plus view reinterpretation and the final access.
func (g *Graph) accumulateFlags() {
	for si := range g.subs {
		s := &g.subs[si]
		r := &g.resources[s.res]
		for _, u := range s.usages {
			r.texUsage |= u.entry.State.TextureUsage() | u.exit.State.TextureUsage()
			r.bufUsage |= u.entry.State.BufferUsage() | u.exit.State.BufferUsage()
		}
	}

	fr := &g.resources[g.views[g.final.view].res]
	fr.texUsage |= g.final.access.State.TextureUsage()
	fr.bufUsage |= g.final.access.State.BufferUsage()

	for i := range g.views {
		v := &g.views[i]
		if !v.alive || v.kind != KindImage {
			continue
		}
		r := &g.resources[v.res]
		if v.image.Format != r.image.Format && !slices.Contains(r.viewFormats, v.image.Format) {
			r.viewFormats = append(r.viewFormats, v.image.Format)
		}
		if v.image.Dimension == ViewDimensionCube || v.image.Dimension == ViewDimensionCubeArray {
			r.cube = true
		}
	}
}

func (g *Graph) allocate(r *resource) error {
	if r.kind == KindImage {
		img, err := g.dev.CreateImage(&ImageCreateInfo{
			Label:     g.objectLabel(r.image.Label),
			Format:    r.image.Format,
			Dimension: r.image.Dimension,
			Size: gputypes.Extent3D{
				Width:              r.image.Width,
				Height:             r.image.Height,
				DepthOrArrayLayers: max(r.image.Depth, r.image.ArrayLayers),
			},
			MipLevels:      r.image.MipLevels,
			SampleCount:    r.image.SampleCount,
			Usage:          r.texUsage,
			ViewFormats:    r.viewFormats,
			CubeCompatible: r.cube,
		})
		if err != nil {
			return fmt.Errorf("%w: image %q: %w", ErrAllocation, r.image.Label, err)
		}
		r.img = img
		g.stats.Allocations++
		return nil
	}

	buf, err := g.dev.CreateBuffer(&BufferCreateInfo{
		Label:       g.objectLabel(r.buffer.Label),
		Size:        r.buffer.Size,
		Usage:       r.bufUsage,
		HostVisible: r.buffer.HostVisible,
	})
	if err != nil {
		return fmt.Errorf("%w: buffer %q: %w", ErrAllocation, r.buffer.Label, err)
	}
	r.buf = buf
	g.stats.Allocations++
	return nil
}

func (g *Graph) objectLabel(name string) string {
	return g.opts.label + "/" + name
}
