package framegraph

// FramePlan is a read-only snapshot of a compiled generation, for tools
// and tests. It is built on demand and does not alias graph state.
type FramePlan struct {
	Generation uint32
	Passes     []PlannedPass
	Culled     []string
	Batches    []PlannedBatch
	Resources  []PlannedResource
}

// PlannedPass is one surviving pass in final order.
type PlannedPass struct {
	ID       PassID
	Name     string
	Queue    Queue
	Position int
	Batch    int
	Clear    bool
	Forced   bool
	Before   []Barrier
	After    []Barrier
}

// TimelineWait is a batch's wait on one queue timeline.
type TimelineWait struct {
	Queue  Queue
	Value  uint64
	Stages Stage
}

// PlannedBatch is one submission.
type PlannedBatch struct {
	Queue    Queue
	First    int // final positions [First, End)
	End      int
	Waits    []TimelineWait
	External []ExternalWait
	Signal   uint64
}

// PlannedResource is one declared resource and its compile result.
type PlannedResource struct {
	ID       ResourceID
	Label    string
	Kind     ResourceKind
	Imported bool
	Alive    bool
	Lifetime Lifetime
}

// Plan returns a snapshot of the executed generation. It must be called
// after Execute and before Reset.
func (g *Graph) Plan() *FramePlan {
	assert(g.phase == phaseExecuted, "Plan called in phase %v", g.phase)
	fp := &FramePlan{Generation: g.gen}

	for pos, pi := range g.order {
		p := &g.passes[pi]
		fp.Passes = append(fp.Passes, PlannedPass{
			ID:       g.passID(pi),
			Name:     p.name,
			Queue:    p.queue,
			Position: pos,
			Batch:    int(p.batch),
			Clear:    p.clearOf >= 0,
			Forced:   p.force,
			Before:   g.copyBarriers(p.before),
			After:    g.copyBarriers(p.after),
		})
	}
	for i := int32(0); i < g.declared; i++ {
		if g.passes[i].pos < 0 {
			fp.Culled = append(fp.Culled, g.passes[i].name)
		}
	}
	for i := range g.batches {
		b := &g.batches[i]
		pb := PlannedBatch{
			Queue:    b.queue,
			First:    int(b.first),
			End:      int(b.end),
			External: append([]ExternalWait(nil), b.external...),
			Signal:   b.signal,
		}
		for q, w := range b.waits {
			if w.value > 0 {
				pb.Waits = append(pb.Waits, TimelineWait{Queue: Queue(q), Value: w.value, Stages: w.stages})
			}
		}
		fp.Batches = append(fp.Batches, pb)
	}
	for i := range g.resources {
		r := &g.resources[i]
		fp.Resources = append(fp.Resources, PlannedResource{
			ID:       g.resourceID(int32(i)),
			Label:    r.label(),
			Kind:     r.kind,
			Imported: r.imported(),
			Alive:    r.alive,
			Lifetime: r.lifetime,
		})
	}
	return fp
}

func (g *Graph) copyBarriers(idx []int32) []Barrier {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Barrier, len(idx))
	for i, bi := range idx {
		out[i] = g.barriers[bi]
	}
	return out
}

// Pass returns the planned pass with the given handle, or nil if it was
// culled.
func (fp *FramePlan) Pass(id PassID) *PlannedPass {
	for i := range fp.Passes {
		if fp.Passes[i].ID == id {
			return &fp.Passes[i]
		}
	}
	return nil
}

// PassByName returns the first planned pass called name, or nil.
func (fp *FramePlan) PassByName(name string) *PlannedPass {
	for i := range fp.Passes {
		if fp.Passes[i].Name == name {
			return &fp.Passes[i]
		}
	}
	return nil
}

// Resource returns the planned resource with the given handle, or nil.
func (fp *FramePlan) Resource(id ResourceID) *PlannedResource {
	for i := range fp.Resources {
		if fp.Resources[i].ID == id {
			return &fp.Resources[i]
		}
	}
	return nil
}
