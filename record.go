package framegraph

import "fmt"

// recordAndSubmit records one command buffer per batch and submits the
// batches in compiled order with their waits and signal.
func (g *Graph) recordAndSubmit() error {
	if err := g.timing.begin(g.dev, &g.opts); err != nil {
		return fmt.Errorf("%w: query pool: %w", ErrRecording, err)
	}
	reg := &Registry{g: g, pass: -1}
	for bi := range g.batches {
		if err := g.recordBatch(int32(bi), reg); err != nil {
			return err
		}
		if err := g.submitBatch(&g.batches[bi]); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) recordBatch(bi int32, reg *Registry) error {
	b := &g.batches[bi]
	label := fmt.Sprintf("%s/batch%d/%v", g.opts.label, bi, b.queue)
	cmd, err := g.dev.NewCommandBuffer(b.queue, label)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRecording, label, err)
	}
	b.cmd = cmd

	for pos := b.first; pos < b.end; pos++ {
		pi := g.order[pos]
		p := &g.passes[pi]

		stamp := -1
		if g.timing.enabled() {
			stamp = g.timing.reserve(p.name, g.opts.timestampBudget)
			cmd.WriteTimestamp(g.timing.pool, stamp)
		}
		g.recordBarriers(cmd, p.before)
		if stamp >= 0 {
			cmd.WriteTimestamp(g.timing.pool, stamp+1)
		}

		switch {
		case p.clearOf >= 0:
			g.recordClear(cmd, &g.resources[p.clearOf])
		case p.fn != nil:
			reg.pass = pi
			p.fn(cmd, reg)
			reg.pass = -1
		}

		if stamp >= 0 {
			cmd.WriteTimestamp(g.timing.pool, stamp+2)
		}
		g.recordBarriers(cmd, p.after)
	}

	if err := cmd.End(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRecording, label, err)
	}
	return nil
}

func (g *Graph) recordBarriers(cmd CommandBuffer, idx []int32) {
	if len(idx) == 0 {
		return
	}
	g.scratch = g.scratch[:0]
	for _, bi := range idx {
		g.scratch = append(g.scratch, g.barriers[bi])
	}
	cmd.Barriers(g.scratch)
}

func (g *Graph) recordClear(cmd CommandBuffer, r *resource) {
	if r.kind == KindImage {
		cmd.ClearImage(r.img, r.image.ClearColor)
		return
	}
	cmd.FillBuffer(r.buf, 0)
}

func (g *Graph) submitBatch(b *batch) error {
	var waits []SemaphoreWait
	for q, w := range b.waits {
		if w.value == 0 {
			continue
		}
		sem, err := g.timeline(Queue(q))
		if err != nil {
			return err
		}
		waits = append(waits, SemaphoreWait{Semaphore: sem, Value: w.value, Stages: w.stages})
	}
	for _, ew := range b.external {
		waits = append(waits, SemaphoreWait(ew))
	}

	var signal SemaphoreSignal
	if b.signal > 0 {
		sem, err := g.timeline(b.queue)
		if err != nil {
			return err
		}
		signal = SemaphoreSignal{Semaphore: sem, Value: b.signal}
	}

	if err := g.dev.Submit(b.queue, b.cmd, waits, signal); err != nil {
		return fmt.Errorf("%w: %v queue: %w", ErrSubmit, b.queue, err)
	}
	g.stats.Submissions++
	if b.signal > 0 {
		g.pending[b.queue] = b.signal
	}
	return nil
}

// Timeline returns the timeline semaphore of queue q, or nil if no batch
// has signalled on q yet.
func (g *Graph) Timeline(q Queue) Semaphore { return g.timelines[q] }

// LastSignal returns the highest value assigned to queue q's timeline so
// far. An ExternalState.Ready value refers to this timeline.
func (g *Graph) LastSignal(q Queue) uint64 { return g.issued[q] }
