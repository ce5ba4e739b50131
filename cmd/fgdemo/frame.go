package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/framegraph"
)

// Frame file errors.
var (
	ErrUnknownName  = errors.New("fgdemo: unknown name")
	ErrDuplicate    = errors.New("fgdemo: duplicate name")
	ErrInvalidValue = errors.New("fgdemo: invalid value")
)

// frameFile is the YAML layout of a frame description.
type frameFile struct {
	Label     string         `yaml:"label"`
	Final     finalSpec      `yaml:"final"`
	Resources []resourceSpec `yaml:"resources"`
	Views     []viewSpec     `yaml:"views"`
	Passes    []passSpec     `yaml:"passes"`
}

type finalSpec struct {
	View   string `yaml:"view"`
	State  string `yaml:"state"`
	Stages string `yaml:"stages"`
}

type resourceSpec struct {
	Name        string     `yaml:"name"`
	Kind        string     `yaml:"kind"`
	Format      string     `yaml:"format"`
	Width       uint32     `yaml:"width"`
	Height      uint32     `yaml:"height"`
	Depth       uint32     `yaml:"depth"`
	Mips        uint32     `yaml:"mips"`
	Layers      uint32     `yaml:"layers"`
	Samples     uint32     `yaml:"samples"`
	Size        uint64     `yaml:"size"`
	HostVisible bool       `yaml:"host_visible"`
	Clear       bool       `yaml:"clear"`
	ClearColor  [4]float64 `yaml:"clear_color"`
	Imported    bool       `yaml:"imported"`
}

type viewSpec struct {
	Name      string `yaml:"name"`
	Resource  string `yaml:"resource"`
	Format    string `yaml:"format"`
	BaseMip   uint32 `yaml:"base_mip"`
	Mips      uint32 `yaml:"mips"`
	BaseLayer uint32 `yaml:"base_layer"`
	Layers    uint32 `yaml:"layers"`
	Offset    uint64 `yaml:"offset"`
	Size      uint64 `yaml:"size"`
}

type useSpec struct {
	View       string `yaml:"view"`
	State      string `yaml:"state"`
	Stages     string `yaml:"stages"`
	ExitState  string `yaml:"exit_state"`
	ExitStages string `yaml:"exit_stages"`
}

type passSpec struct {
	Name  string    `yaml:"name"`
	Queue string    `yaml:"queue"`
	Force bool      `yaml:"force"`
	Uses  []useSpec `yaml:"uses"`
}

// Frame is a validated frame description, ready to be declared on a graph
// once per generation.
type Frame struct {
	Label     string
	resources []frameResource
	views     []frameView
	passes    []framePass
	final     int
	access    framegraph.Access
}

type frameResource struct {
	name     string
	kind     framegraph.ResourceKind
	image    framegraph.ImageDesc
	buffer   framegraph.BufferDesc
	imported bool
}

type frameView struct {
	name   string
	res    int
	image  framegraph.ImageViewDesc
	buffer framegraph.BufferViewDesc
}

type frameUse struct {
	view        int
	entry, exit framegraph.Access
}

type framePass struct {
	name  string
	queue framegraph.Queue
	force bool
	uses  []frameUse
}

var formats = map[string]gputypes.TextureFormat{
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"r32float":             gputypes.TextureFormatR32Float,
	"rg16float":            gputypes.TextureFormatRG16Float,
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb":      gputypes.TextureFormatRGBA8UnormSrgb,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb":      gputypes.TextureFormatBGRA8UnormSrgb,
	"rgba16float":          gputypes.TextureFormatRGBA16Float,
	"rgba32float":          gputypes.TextureFormatRGBA32Float,
	"depth32float":         gputypes.TextureFormatDepth32Float,
	"depth24plus-stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

var queues = map[string]framegraph.Queue{
	"graphics": framegraph.QueueGraphics,
	"compute":  framegraph.QueueCompute,
	"transfer": framegraph.QueueTransfer,
}

// LoadFrame parses and validates a YAML frame description.
func LoadFrame(r io.Reader) (*Frame, error) {
	var ff frameFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("fgdemo: parse frame: %w", err)
	}
	return ff.compile()
}

func (ff *frameFile) compile() (*Frame, error) {
	f := &Frame{Label: ff.Label}
	if f.Label == "" {
		f.Label = "fgdemo"
	}

	resIndex := make(map[string]int)
	viewIndex := make(map[string]int)

	for _, rs := range ff.Resources {
		if rs.Name == "" {
			return nil, fmt.Errorf("%w: resource without a name", ErrInvalidValue)
		}
		if _, ok := resIndex[rs.Name]; ok {
			return nil, fmt.Errorf("%w: resource %q", ErrDuplicate, rs.Name)
		}
		fr, err := rs.compile()
		if err != nil {
			return nil, err
		}
		resIndex[rs.Name] = len(f.resources)
		f.resources = append(f.resources, fr)

		// Every resource has an implicit full view under its own name.
		viewIndex[rs.Name] = len(f.views)
		f.views = append(f.views, frameView{name: rs.Name, res: resIndex[rs.Name]})
	}

	for _, vs := range ff.Views {
		if _, ok := viewIndex[vs.Name]; ok || vs.Name == "" {
			return nil, fmt.Errorf("%w: view %q", ErrDuplicate, vs.Name)
		}
		ri, ok := resIndex[vs.Resource]
		if !ok {
			return nil, fmt.Errorf("%w: view %q refers to resource %q", ErrUnknownName, vs.Name, vs.Resource)
		}
		fv := frameView{name: vs.Name, res: ri}
		if f.resources[ri].kind == framegraph.KindImage {
			fv.image = framegraph.ImageViewDesc{
				Label:      vs.Name,
				BaseMip:    vs.BaseMip,
				MipCount:   vs.Mips,
				BaseLayer:  vs.BaseLayer,
				LayerCount: vs.Layers,
			}
			if vs.Format != "" {
				format, ok := formats[vs.Format]
				if !ok {
					return nil, fmt.Errorf("%w: view %q format %q", ErrInvalidValue, vs.Name, vs.Format)
				}
				fv.image.Format = format
			}
		} else {
			fv.buffer = framegraph.BufferViewDesc{Label: vs.Name, Offset: vs.Offset, Size: vs.Size}
		}
		viewIndex[vs.Name] = len(f.views)
		f.views = append(f.views, fv)
	}

	for _, ps := range ff.Passes {
		q, ok := queues[ps.Queue]
		if !ok {
			return nil, fmt.Errorf("%w: pass %q queue %q", ErrInvalidValue, ps.Name, ps.Queue)
		}
		fp := framePass{name: ps.Name, queue: q, force: ps.Force}
		for _, us := range ps.Uses {
			vi, ok := viewIndex[us.View]
			if !ok {
				return nil, fmt.Errorf("%w: pass %q uses view %q", ErrUnknownName, ps.Name, us.View)
			}
			entry, err := parseAccess(us.State, us.Stages)
			if err != nil {
				return nil, fmt.Errorf("pass %q: %w", ps.Name, err)
			}
			exit := entry
			if us.ExitState != "" {
				if exit, err = parseAccess(us.ExitState, us.ExitStages); err != nil {
					return nil, fmt.Errorf("pass %q: %w", ps.Name, err)
				}
			}
			fp.uses = append(fp.uses, frameUse{view: vi, entry: entry, exit: exit})
		}
		f.passes = append(f.passes, fp)
	}

	vi, ok := viewIndex[ff.Final.View]
	if !ok {
		return nil, fmt.Errorf("%w: final view %q", ErrUnknownName, ff.Final.View)
	}
	f.final = vi
	if ff.Final.State != "" {
		access, err := parseAccess(ff.Final.State, ff.Final.Stages)
		if err != nil {
			return nil, fmt.Errorf("final: %w", err)
		}
		f.access = access
	}
	return f, nil
}

func (rs *resourceSpec) compile() (frameResource, error) {
	fr := frameResource{name: rs.Name, imported: rs.Imported}
	if rs.Imported && rs.Clear {
		return fr, fmt.Errorf("%w: imported resource %q cannot be cleared", ErrInvalidValue, rs.Name)
	}
	switch strings.ToLower(rs.Kind) {
	case "image", "":
		format := gputypes.TextureFormatRGBA8Unorm
		if rs.Format != "" {
			var ok bool
			if format, ok = formats[rs.Format]; !ok {
				return fr, fmt.Errorf("%w: image %q format %q", ErrInvalidValue, rs.Name, rs.Format)
			}
		}
		if rs.Width == 0 || rs.Height == 0 {
			return fr, fmt.Errorf("%w: image %q needs width and height", ErrInvalidValue, rs.Name)
		}
		fr.kind = framegraph.KindImage
		fr.image = framegraph.ImageDesc{
			Label:           rs.Name,
			Format:          format,
			Width:           rs.Width,
			Height:          rs.Height,
			Depth:           rs.Depth,
			MipLevels:       rs.Mips,
			ArrayLayers:     rs.Layers,
			SampleCount:     rs.Samples,
			ClearOnFirstUse: rs.Clear,
			ClearColor: framegraph.ClearColor{
				R: rs.ClearColor[0], G: rs.ClearColor[1], B: rs.ClearColor[2], A: rs.ClearColor[3],
			},
		}
	case "buffer":
		if rs.Size == 0 {
			return fr, fmt.Errorf("%w: buffer %q needs a size", ErrInvalidValue, rs.Name)
		}
		fr.kind = framegraph.KindBuffer
		fr.buffer = framegraph.BufferDesc{
			Label:           rs.Name,
			Size:            rs.Size,
			HostVisible:     rs.HostVisible,
			ClearOnFirstUse: rs.Clear,
		}
	default:
		return fr, fmt.Errorf("%w: resource %q kind %q", ErrInvalidValue, rs.Name, rs.Kind)
	}
	return fr, nil
}

func parseAccess(state, stages string) (framegraph.Access, error) {
	s, ok := framegraph.ParseState(state)
	if !ok {
		return framegraph.Access{}, fmt.Errorf("%w: state %q", ErrInvalidValue, state)
	}
	st, ok := framegraph.ParseStage(stages)
	if !ok {
		return framegraph.Access{}, fmt.Errorf("%w: stages %q", ErrInvalidValue, stages)
	}
	return framegraph.Access{State: s, Stages: st}, nil
}
