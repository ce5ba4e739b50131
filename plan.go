package framegraph

// plan walks every surviving subresource's usage chain, emits barriers and
// queue handoffs, groups passes into batches and resolves semaphore values.
func (g *Graph) plan() {
	g.barriers = g.barriers[:0]
	g.handoffs = g.handoffs[:0]
	for ri := range g.resources {
		r := &g.resources[ri]
		if !r.alive {
			continue
		}
		for si := r.firstSub; si < r.firstSub+r.subCount; si++ {
			g.planSub(int32(ri), si)
		}
	}
	g.attachExternalWait()
	g.buildBatches()
	g.assignSignals()
	g.resolveWaits()
	g.stampImportReady()
}

// planSub emits the barriers of one subresource chain.
//
// The chain is seeded from the imported state when the resource is
// imported, from Undefined on the first user's queue for a transient image
// and not at all for a transient buffer, whose first use needs no
// dependency. Between consecutive usages on one queue a transition is
// emitted when the state changes or either side writes; a queue change
// becomes a handoff.
func (g *Graph) planSub(ri, si int32) {
	s := &g.subs[si]
	if len(s.usages) == 0 {
		return
	}
	r := &g.resources[ri]

	var ext *ExternalState
	switch {
	case r.extImage != nil:
		ext = &r.extImage.States[si-r.firstSub]
	case r.extBuffer != nil:
		ext = &r.extBuffer.State
	}

	var prev Access
	prevQueue := g.passes[s.usages[0].pass].queue
	prevPass := int32(-1)
	seeded := true
	var ready uint64
	switch {
	case ext != nil:
		prev, prevQueue, ready = ext.Access, ext.Queue, ext.Ready
	case r.kind == KindImage:
		prev = Access{State: StateUndefined, Stages: StageNone}
	default:
		seeded = false
	}

	for _, u := range s.usages {
		p := &g.passes[u.pass]
		switch {
		case !seeded:
		case prevQueue != p.queue:
			g.addHandoff(si, prevPass, u.pass, prev, u.entry, prevQueue, ready)
		case needsBarrier(prev, u.entry):
			b := g.addBarrier(BarrierTransition, si, prev, u.entry, p.queue, p.queue)
			p.before = append(p.before, b)
		}
		prev, prevQueue, prevPass, seeded = u.exit, p.queue, u.pass, true
	}

	if s.final && g.final.access.State != StateUndefined && needsBarrier(prev, g.final.access) {
		b := g.addBarrier(BarrierTransition, si, prev, g.final.access, prevQueue, prevQueue)
		lp := &g.passes[prevPass]
		lp.after = append(lp.after, b)
		prev = g.final.access
	}

	if ext != nil {
		*ext = ExternalState{Access: prev, Queue: prevQueue}
	}
}

func (g *Graph) addBarrier(kind BarrierKind, si int32, before, after Access, src, dst Queue) int32 {
	s := &g.subs[si]
	r := &g.resources[s.res]
	b := Barrier{
		Kind:     kind,
		Resource: g.resourceID(s.res),
		Mip:      s.mip,
		Layer:    s.layer,
		Before:   before,
		After:    after,
		SrcQueue: src,
		DstQueue: dst,
	}
	if r.kind == KindImage {
		b.Image = r.img
	} else {
		b.Buffer = r.buf
	}
	g.barriers = append(g.barriers, b)
	return int32(len(g.barriers) - 1)
}

// addHandoff records a queue ownership transfer of subresource si from pass
// from (or from an imported seed when from is -1) to pass to.
func (g *Graph) addHandoff(si, from, to int32, before, after Access, src Queue, ready uint64) {
	tp := &g.passes[to]
	h := handoff{
		from:     from,
		to:       to,
		srcQueue: src,
		dstQueue: tp.queue,
		release:  -1,
		ticket:   ready,
	}
	if from >= 0 {
		h.release = g.addBarrier(BarrierRelease, si, before, after, src, tp.queue)
		fp := &g.passes[from]
		fp.after = append(fp.after, h.release)
		fp.release = true
	}
	h.acquire = g.addBarrier(BarrierAcquire, si, before, after, src, tp.queue)
	tp.before = append(tp.before, h.acquire)

	hi := int32(len(g.handoffs))
	g.handoffs = append(g.handoffs, h)
	if from >= 0 || ready > 0 {
		tp.waits = append(tp.waits, waitEdge{handoff: hi})
	}
}

// attachExternalWait hangs the frame's external wait on the first pass that
// touches the final resource.
func (g *Graph) attachExternalWait() {
	if g.final.wait == nil {
		return
	}
	r := &g.resources[g.views[g.final.view].res]
	if !r.alive {
		return
	}
	p := &g.passes[g.order[r.lifetime.First]]
	p.waits = append(p.waits, waitEdge{handoff: -1, external: g.final.wait})
}

// buildBatches splits the final order into batches. A new batch starts on
// a queue change, on a pass with a pending wait, and right after a pass
// that releases ownership.
func (g *Graph) buildBatches() {
	g.batches = g.batches[:0]
	for pos, pi := range g.order {
		p := &g.passes[pi]
		n := len(g.batches)
		split := n == 0 ||
			g.batches[n-1].queue != p.queue ||
			len(p.waits) > 0 ||
			g.passes[g.order[pos-1]].release
		if split {
			g.batches = append(g.batches, batch{queue: p.queue, first: int32(pos)})
			n++
		}
		g.batches[n-1].end = int32(pos + 1)
		p.batch = int32(n - 1)
	}
}

// assignSignals gives the next timeline value to every batch that ends in
// a release and to the last batch on each queue.
func (g *Graph) assignSignals() {
	var last [QueueCount]int
	for q := range last {
		last[q] = -1
	}
	for bi := range g.batches {
		last[g.batches[bi].queue] = bi
	}
	for bi := range g.batches {
		b := &g.batches[bi]
		tail := &g.passes[g.order[b.end-1]]
		if tail.release || last[b.queue] == bi {
			g.issued[b.queue]++
			b.signal = g.issued[b.queue]
		}
	}
}

// stampImportReady records, for every imported subresource the frame
// touched, the value its final owning queue reaches at the end of the
// generation. A later generation importing it on another queue waits for
// that value.
func (g *Graph) stampImportReady() {
	for ri := range g.resources {
		r := &g.resources[ri]
		if !r.alive || !r.imported() {
			continue
		}
		for si := r.firstSub; si < r.firstSub+r.subCount; si++ {
			if len(g.subs[si].usages) == 0 {
				continue
			}
			var ext *ExternalState
			if r.extImage != nil {
				ext = &r.extImage.States[si-r.firstSub]
			} else {
				ext = &r.extBuffer.State
			}
			ext.Ready = g.issued[ext.Queue]
		}
	}
}

// resolveWaits stamps every handoff with the releasing batch's signal value
// and merges the waits of each batch to the maximum value per timeline.
func (g *Graph) resolveWaits() {
	for i := range g.handoffs {
		h := &g.handoffs[i]
		if h.from >= 0 {
			h.ticket = g.batches[g.passes[h.from].batch].signal
			g.barriers[h.release].Ticket = h.ticket
		}
		g.barriers[h.acquire].Ticket = h.ticket
	}

	for bi := range g.batches {
		b := &g.batches[bi]
		p := &g.passes[g.order[b.first]]
		for _, w := range p.waits {
			if w.external != nil {
				b.external = append(b.external, *w.external)
				continue
			}
			h := &g.handoffs[w.handoff]
			assert(h.srcQueue != b.queue, "handoff within %v queue", b.queue)
			tw := &b.waits[h.srcQueue]
			tw.value = max(tw.value, h.ticket)
			tw.stages |= g.barriers[h.acquire].After.Stages
		}
	}
}
