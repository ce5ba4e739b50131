package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// phase is the position of a Graph in its per-frame state machine.
type phase uint8

const (
	phaseReady phase = iota
	phaseCompiling
	phaseMaterializing
	phasePlanning
	phaseRecording
	phaseExecuted
)

var phaseNames = [...]string{"ready", "compiling", "materializing", "planning", "recording", "executed"}

func (p phase) String() string { return phaseNames[p] }

// PassFunc records the commands of one pass. The registry is valid only for
// the duration of the call.
type PassFunc func(cmd CommandBuffer, reg *Registry)

// resource is one row of the logical resource table.
type resource struct {
	kind   ResourceKind
	image  ImageDesc
	buffer BufferDesc

	extImage  *ExternalImage
	extBuffer *ExternalBuffer

	firstSub int32
	subCount int32

	alive    bool
	lifetime Lifetime

	texUsage    gputypes.TextureUsage
	bufUsage    gputypes.BufferUsage
	viewFormats []gputypes.TextureFormat
	cube        bool

	img Image
	buf Buffer
}

func (r *resource) imported() bool { return r.extImage != nil || r.extBuffer != nil }

func (r *resource) label() string {
	if r.kind == KindImage {
		return r.image.Label
	}
	return r.buffer.Label
}

func (r *resource) clearOnFirstUse() bool {
	if r.imported() {
		return false
	}
	if r.kind == KindImage {
		return r.image.ClearOnFirstUse
	}
	return r.buffer.ClearOnFirstUse
}

// view is one row of the logical view table.
type view struct {
	res    int32
	kind   ResourceKind
	image  ImageViewDesc
	buffer BufferViewDesc
	alive  bool

	imgView ImageView
	bufView BufferView
}

// usageRecord is one entry of a subresource's ordered usage list.
type usageRecord struct {
	pass  int32
	entry Access
	exit  Access
	write bool
}

// subresource is the finest independently tracked unit of a resource.
type subresource struct {
	res        int32
	mip, layer uint32
	usages     []usageRecord
	refs       int32
	final      bool
}

// waitEdge is a semaphore wait pending on a pass: either the acquiring end
// of a handoff or the frame's external wait.
type waitEdge struct {
	handoff  int32 // index into Graph.handoffs, or -1
	external *ExternalWait
}

// pass is one row of the pass table.
type pass struct {
	name   string
	queue  Queue
	usages []Usage
	fn     PassFunc
	force  bool

	reads  []int32
	writes []int32
	refs   int32
	alive  bool

	clearOf int32 // resource index for a synthetic clear, else -1

	pos     int32 // final order position, -1 when culled
	before  []int32
	after   []int32
	release bool
	waits   []waitEdge
	batch   int32
}

// handoff is one queue ownership transfer: a release on the giving pass, an
// acquire on the receiving pass and the timeline value that joins them.
type handoff struct {
	from, to int32 // pass indices; from is -1 for an imported seed
	srcQueue Queue
	dstQueue Queue
	release  int32 // barrier index, -1 for an imported seed
	acquire  int32
	ticket   uint64
}

// batch is a run of consecutive passes submitted together on one queue.
type batch struct {
	queue    Queue
	first    int32 // final order positions [first, end)
	end      int32
	waits    [QueueCount]timelineWait
	external []ExternalWait
	signal   uint64
	cmd      CommandBuffer
}

// timelineWait is the merged wait of a batch on one queue's timeline.
type timelineWait struct {
	value  uint64
	stages Stage
}

// finalTarget is the observable output of the frame.
type finalTarget struct {
	view   int32
	access Access
	wait   *ExternalWait
}

// Graph is a per-frame render graph. A Graph is not safe for concurrent
// use; it is driven by a single frame loop:
//
//	for {
//	    declare passes and resources
//	    g.Execute(final, access, wait)
//	    g.Reset()
//	}
type Graph struct {
	dev   Device
	opts  options
	phase phase
	gen   uint32

	resources []resource
	views     []view
	subs      []subresource
	passes    []pass
	declared  int32 // passes declared by the client; synthetic clears follow

	final finalTarget

	order    []int32
	barriers []Barrier
	handoffs []handoff
	batches  []batch

	timelines [QueueCount]Semaphore
	issued    [QueueCount]uint64 // highest value ever signalled per queue
	pending   [QueueCount]uint64 // value Reset must wait for, 0 if none

	timing  timingState
	stats   FrameStats
	scratch []Barrier
}

// New creates a graph that drives dev.
func New(dev Device, opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{
		dev:  dev,
		opts: o,
		gen:  1,
	}
}

// Generation returns the current generation number. Handles created now
// carry this number.
func (g *Graph) Generation() uint32 { return g.gen }

// Execute compiles the declared frame with final as its observable output,
// allocates surviving transient resources, plans synchronization and
// records and submits every batch.
//
// finalAccess is the access the final view's subresources are left in,
// for example StatePresent. A zero State leaves them in their last used
// state. wait, when non-nil, is waited on by the first pass that touches
// the final resource.
//
// A device error aborts the frame; Reset must still be called before the
// next frame.
func (g *Graph) Execute(final ViewID, finalAccess Access, wait *ExternalWait) error {
	assert(g.phase == phaseReady, "Execute called in phase %v", g.phase)
	fv := g.viewIndex(final)
	g.final = finalTarget{view: fv, access: finalAccess, wait: wait}
	g.markFinal(fv)

	g.phase = phaseCompiling
	g.compile()

	g.phase = phaseMaterializing
	err := g.materialize()
	if err == nil {
		g.phase = phasePlanning
		g.plan()

		g.phase = phaseRecording
		err = g.recordAndSubmit()
	}
	g.phase = phaseExecuted

	g.collectStats()
	log := Logger()
	log.Debug("framegraph: frame executed",
		"label", g.opts.label,
		"generation", g.gen,
		"passes", g.stats.DeclaredPasses,
		"culled", g.stats.CulledPasses,
		"clears", g.stats.ClearPasses,
		"batches", g.stats.Batches,
		"barriers", g.stats.Barriers,
		"handoffs", g.stats.Handoffs)
	if g.opts.observer != nil {
		g.opts.observer.ObserveFrame(g.stats)
	}
	return err
}

// Reset waits for the previous generation's GPU work to retire, reads back
// its timing, destroys its transient objects and clears all tables.
//
// Calling Reset again without an intervening Execute is a no-op. Calling
// it with declarations pending but no Execute is a contract violation.
//
// If the GPU does not retire in time, Reset returns an error wrapping
// ErrRetireTimeout and destroys nothing; it may be called again.
func (g *Graph) Reset() error {
	switch g.phase {
	case phaseReady:
		assert(len(g.passes) == 0 && len(g.resources) == 0 && len(g.views) == 0,
			"Reset called with declarations pending and no Execute")
		return nil
	case phaseExecuted:
	default:
		assert(false, "Reset called in phase %v", g.phase)
	}

	if err := g.retire(); err != nil {
		return err
	}
	g.readTimings()
	g.destroyGeneration()
	g.clearTables()
	g.gen++
	g.phase = phaseReady
	return nil
}

// Close resets the graph if a frame is in flight and destroys the queue
// timelines. The graph must not be used afterwards.
func (g *Graph) Close() error {
	var err error
	if g.phase == phaseExecuted {
		err = g.Reset()
	}
	for q, sem := range g.timelines {
		if sem != nil {
			g.dev.DestroyTimeline(sem)
			g.timelines[q] = nil
		}
	}
	return err
}

// retire blocks until every queue that signalled in this generation has
// reached its last value.
func (g *Graph) retire() error {
	var errs []error
	for q := range g.pending {
		v := g.pending[q]
		if v == 0 {
			continue
		}
		if err := g.dev.WaitTimeline(g.timelines[q], v, g.opts.retireTimeout); err != nil {
			Logger().Warn("framegraph: queue did not retire",
				"queue", Queue(q), "value", v, "err", err)
			errs = append(errs, fmt.Errorf("%w: queue %v value %d: %w", ErrRetireTimeout, Queue(q), v, err))
			continue
		}
		g.pending[q] = 0
	}
	return errors.Join(errs...)
}

// destroyGeneration releases every object created for this generation.
func (g *Graph) destroyGeneration() {
	for i := range g.batches {
		if cmd := g.batches[i].cmd; cmd != nil {
			g.dev.FreeCommandBuffer(cmd)
		}
	}
	for i := range g.views {
		v := &g.views[i]
		if v.imgView != nil {
			g.dev.DestroyImageView(v.imgView)
		}
		if v.bufView != nil {
			g.dev.DestroyBufferView(v.bufView)
		}
	}
	for i := range g.resources {
		r := &g.resources[i]
		if r.imported() {
			continue
		}
		if r.img != nil {
			g.dev.DestroyImage(r.img)
		}
		if r.buf != nil {
			g.dev.DestroyBuffer(r.buf)
		}
	}
	g.timing.destroy(g.dev)
}

// clearTables empties every per-generation table, keeping capacity.
func (g *Graph) clearTables() {
	clear(g.resources)
	clear(g.views)
	clear(g.subs)
	clear(g.passes)
	clear(g.batches)
	clear(g.barriers)
	g.resources = g.resources[:0]
	g.views = g.views[:0]
	g.subs = g.subs[:0]
	g.passes = g.passes[:0]
	g.declared = 0
	g.order = g.order[:0]
	g.barriers = g.barriers[:0]
	g.handoffs = g.handoffs[:0]
	g.batches = g.batches[:0]
	g.final = finalTarget{}
	g.stats = FrameStats{}
}

// timeline returns the timeline semaphore of q, creating it on first use.
func (g *Graph) timeline(q Queue) (Semaphore, error) {
	if g.timelines[q] == nil {
		sem, err := g.dev.CreateTimeline(q)
		if err != nil {
			return nil, fmt.Errorf("%w: timeline for %v queue: %w", ErrSubmit, q, err)
		}
		g.timelines[q] = sem
	}
	return g.timelines[q], nil
}
