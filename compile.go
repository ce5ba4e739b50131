package framegraph

import "slices"

// compile culls dead passes, prunes usage lists, splices clear passes and
// computes lifetimes over the final order.
//
// Culling is a reverse reference-count fixpoint over the pair (subresource
// usage lists, pass read/write lists); no adjacency structure is built.
func (g *Graph) compile() {
	g.cull()
	g.prune()
	g.buildOrder()
	g.computeLifetimes()
	if g.spliceClears() {
		g.computeLifetimes()
	}
	g.markViews()
}

// cull runs the reference-count fixpoint.
//
// A pass holds one reference per written subresource and one more when it
// is forced. A subresource holds one reference per reading usage and one
// more when it is part of the final output. A pass whose count drops to
// zero is dead and releases the subresources it reads.
func (g *Graph) cull() {
	for i := range g.passes {
		p := &g.passes[i]
		p.refs = int32(len(p.writes))
		if p.force {
			p.refs++
		}
		p.alive = true
	}

	work := make([]int32, 0, len(g.subs))
	for i := range g.subs {
		s := &g.subs[i]
		s.refs = 0
		for _, u := range s.usages {
			if !u.write {
				s.refs++
			}
		}
		if s.final {
			s.refs++
		}
		if s.refs == 0 {
			work = append(work, int32(i))
		}
	}

	kill := func(pi int32) {
		p := &g.passes[pi]
		p.alive = false
		for _, si := range p.reads {
			s := &g.subs[si]
			s.refs--
			if s.refs == 0 {
				work = append(work, si)
			}
		}
	}

	// Passes that write nothing and are not forced are dead from the start.
	for i := range g.passes {
		if g.passes[i].refs == 0 {
			kill(int32(i))
		}
	}

	for len(work) > 0 {
		si := work[len(work)-1]
		work = work[:len(work)-1]
		for _, u := range g.subs[si].usages {
			if !u.write {
				continue
			}
			p := &g.passes[u.pass]
			if !p.alive {
				continue
			}
			p.refs--
			if p.refs == 0 {
				kill(u.pass)
			}
		}
	}
}

// prune strips usages of dead passes from every subresource list and
// decides which resources survive. A resource survives when a surviving
// pass reads it, it is part of the final output, a forced pass touches it
// or it is imported. A transient resource that is only ever written is
// culled along with its usages even though its writers survive.
func (g *Graph) prune() {
	for i := range g.subs {
		s := &g.subs[i]
		s.usages = slices.DeleteFunc(s.usages, func(u usageRecord) bool {
			return !g.passes[u.pass].alive
		})
		if len(s.usages) == 0 {
			continue
		}
		r := &g.resources[s.res]
		if s.refs > 0 || r.imported() {
			r.alive = true
			continue
		}
		for _, u := range s.usages {
			if g.passes[u.pass].force {
				r.alive = true
				break
			}
		}
	}
	for i := range g.subs {
		s := &g.subs[i]
		if !g.resources[s.res].alive {
			s.usages = s.usages[:0]
		}
	}
}

// buildOrder emits the surviving passes in declaration order.
func (g *Graph) buildOrder() {
	g.order = g.order[:0]
	for i := range g.passes {
		p := &g.passes[i]
		if p.alive {
			p.pos = int32(len(g.order))
			g.order = append(g.order, int32(i))
		} else {
			p.pos = -1
		}
	}
}

// computeLifetimes sets every surviving resource's lifetime from the pruned
// usage lists and the current final order.
func (g *Graph) computeLifetimes() {
	for i := range g.resources {
		r := &g.resources[i]
		r.lifetime = Lifetime{First: -1, Last: -1}
		if !r.alive {
			continue
		}
		for si := r.firstSub; si < r.firstSub+r.subCount; si++ {
			for _, u := range g.subs[si].usages {
				pos := int(g.passes[u.pass].pos)
				if r.lifetime.First < 0 || pos < r.lifetime.First {
					r.lifetime.First = pos
				}
				if pos > r.lifetime.Last {
					r.lifetime.Last = pos
				}
			}
		}
	}
}

// spliceClears inserts a clear pass immediately before the lifetime start of
// every surviving clear-on-first-use resource. Positions refer to the
// compacted order, so the clear lands at the old start and every later pass
// shifts by the number of clears inserted before it. Reports whether any
// clear was inserted.
func (g *Graph) spliceClears() bool {
	var clears []int32
	for i := range g.resources {
		r := &g.resources[i]
		if r.alive && r.clearOnFirstUse() {
			clears = append(clears, int32(i))
		}
	}
	if len(clears) == 0 {
		return false
	}
	// Stable so resources starting at the same pass clear in declaration order.
	slices.SortStableFunc(clears, func(a, b int32) int {
		return g.resources[a].lifetime.First - g.resources[b].lifetime.First
	})

	old := g.order
	order := make([]int32, 0, len(old)+len(clears))
	next := 0
	for pos, pi := range old {
		for next < len(clears) && g.resources[clears[next]].lifetime.First == pos {
			order = append(order, g.addClearPass(clears[next], g.passes[pi].queue))
			next++
		}
		order = append(order, pi)
	}
	g.order = order
	for pos, pi := range g.order {
		g.passes[pi].pos = int32(pos)
	}
	return true
}

// addClearPass appends a synthetic clear of resource ri on queue q and
// prepends its write to the usage list of every subresource of ri.
func (g *Graph) addClearPass(ri int32, q Queue) int32 {
	r := &g.resources[ri]
	idx := int32(len(g.passes))
	access := Access{State: StateCopyDst, Stages: StageTransfer}
	rec := usageRecord{pass: idx, entry: access, exit: access, write: true}

	writes := make([]int32, 0, r.subCount)
	for si := r.firstSub; si < r.firstSub+r.subCount; si++ {
		s := &g.subs[si]
		s.usages = slices.Insert(s.usages, 0, rec)
		writes = append(writes, si)
	}
	g.passes = append(g.passes, pass{
		name:    "clear:" + r.label(),
		queue:   q,
		writes:  writes,
		alive:   true,
		clearOf: ri,
		batch:   -1,
	})
	return idx
}

// markViews flags the views the surviving frame references.
func (g *Graph) markViews() {
	for _, pi := range g.order {
		for _, u := range g.passes[pi].usages {
			v := &g.views[g.viewIndex(u.View)]
			if g.resources[v.res].alive {
				v.alive = true
			}
		}
	}
	if fv := &g.views[g.final.view]; g.resources[fv.res].alive {
		fv.alive = true
	}
}
