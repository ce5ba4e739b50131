package main

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
)

// scene declares a Frame on a graph every generation. Imported resources
// are created once on the device and carried across generations.
type scene struct {
	frame   *Frame
	dev     framegraph.Device
	images  map[int]*framegraph.ExternalImage
	buffers map[int]*framegraph.ExternalBuffer
}

func newScene(f *Frame, dev framegraph.Device) (*scene, error) {
	s := &scene{
		frame:   f,
		dev:     dev,
		images:  make(map[int]*framegraph.ExternalImage),
		buffers: make(map[int]*framegraph.ExternalBuffer),
	}
	for ri := range f.resources {
		r := &f.resources[ri]
		if !r.imported {
			continue
		}
		if err := s.createImported(ri, r); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

// createImported allocates the persistent object behind an imported
// resource with every capability the frame uses it with.
func (s *scene) createImported(ri int, r *frameResource) error {
	var entries []framegraph.State
	for _, p := range s.frame.passes {
		for _, u := range p.uses {
			if s.frame.views[u.view].res == ri {
				entries = append(entries, u.entry.State, u.exit.State)
			}
		}
	}
	if s.frame.views[s.frame.final].res == ri {
		entries = append(entries, s.frame.access.State)
	}

	if r.kind == framegraph.KindImage {
		desc := r.image
		if desc.Dimension == 0 {
			desc.Dimension = gputypes.TextureDimension2D
		}
		info := &framegraph.ImageCreateInfo{
			Label:       "imported/" + r.name,
			Format:      desc.Format,
			Dimension:   desc.Dimension,
			MipLevels:   max(desc.MipLevels, 1),
			SampleCount: max(desc.SampleCount, 1),
		}
		info.Size.Width, info.Size.Height = desc.Width, desc.Height
		info.Size.DepthOrArrayLayers = max(desc.Depth, desc.ArrayLayers, 1)
		for _, st := range entries {
			info.Usage |= st.TextureUsage()
		}
		img, err := s.dev.CreateImage(info)
		if err != nil {
			return fmt.Errorf("fgdemo: create imported image %q: %w", r.name, err)
		}
		s.images[ri] = framegraph.NewExternalImage(img, desc, framegraph.Access{}, s.firstQueue(ri))
		return nil
	}

	info := &framegraph.BufferCreateInfo{
		Label:       "imported/" + r.name,
		Size:        r.buffer.Size,
		HostVisible: r.buffer.HostVisible,
	}
	for _, st := range entries {
		info.Usage |= st.BufferUsage()
	}
	buf, err := s.dev.CreateBuffer(info)
	if err != nil {
		return fmt.Errorf("fgdemo: create imported buffer %q: %w", r.name, err)
	}
	s.buffers[ri] = &framegraph.ExternalBuffer{
		Buffer: buf,
		Desc:   r.buffer,
		State:  framegraph.ExternalState{Queue: s.firstQueue(ri)},
	}
	return nil
}

// firstQueue is the queue of the first pass touching resource ri.
func (s *scene) firstQueue(ri int) framegraph.Queue {
	for _, p := range s.frame.passes {
		for _, u := range p.uses {
			if s.frame.views[u.view].res == ri {
				return p.queue
			}
		}
	}
	return framegraph.QueueGraphics
}

// declare records the frame on g and returns the final view.
func (s *scene) declare(g *framegraph.Graph) framegraph.ViewID {
	f := s.frame
	res := make([]framegraph.ResourceID, len(f.resources))
	for ri := range f.resources {
		r := &f.resources[ri]
		switch {
		case s.images[ri] != nil:
			res[ri] = g.ImportImage(s.images[ri])
		case s.buffers[ri] != nil:
			res[ri] = g.ImportBuffer(s.buffers[ri])
		case r.kind == framegraph.KindImage:
			res[ri] = g.CreateImage(r.image)
		default:
			res[ri] = g.CreateBuffer(r.buffer)
		}
	}

	views := make([]framegraph.ViewID, len(f.views))
	for vi := range f.views {
		v := &f.views[vi]
		if f.resources[v.res].kind == framegraph.KindImage {
			views[vi] = g.CreateImageView(res[v.res], v.image)
		} else {
			views[vi] = g.CreateBufferView(res[v.res], v.buffer)
		}
	}

	for pi := range f.passes {
		p := &f.passes[pi]
		usages := make([]framegraph.Usage, len(p.uses))
		for i, u := range p.uses {
			usages[i] = framegraph.Transition(views[u.view], u.entry, u.exit)
		}
		var opts []framegraph.PassOption
		if p.force {
			opts = append(opts, framegraph.ForceExecution())
		}
		g.AddPass(p.name, p.queue, usages, s.record(p, views, g.Generation()), opts...)
	}
	return views[f.final]
}

// noter is implemented by command buffers that accept free-form markers.
type noter interface {
	Note(text string)
}

// record returns the callback of pass p. It marks the command stream and
// writes the generation number into every host-visible buffer the pass
// writes from the host.
func (s *scene) record(p *framePass, views []framegraph.ViewID, gen uint32) framegraph.PassFunc {
	return func(cmd framegraph.CommandBuffer, reg *framegraph.Registry) {
		if n, ok := cmd.(noter); ok {
			n.Note(p.name)
		}
		for _, u := range p.uses {
			if u.entry.State != framegraph.StateHostWrite {
				continue
			}
			r := &s.frame.resources[s.frame.views[u.view].res]
			if r.kind != framegraph.KindBuffer || !r.buffer.HostVisible {
				continue
			}
			mem, err := reg.Mapped(views[u.view])
			if err != nil {
				framegraph.Logger().Warn("fgdemo: map failed", "pass", p.name, "err", err)
				continue
			}
			for i := range mem {
				mem[i] = byte(gen)
			}
		}
		framegraph.Logger().Debug("fgdemo: pass recorded", "pass", reg.Pass(), "queue", reg.Queue())
	}
}

func (s *scene) close() {
	for _, ext := range s.images {
		s.dev.DestroyImage(ext.Image)
	}
	for _, ext := range s.buffers {
		s.dev.DestroyBuffer(ext.Buffer)
	}
}
