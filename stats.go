package framegraph

// FrameStats summarises one executed generation.
type FrameStats struct {
	Label           string
	Generation      uint32
	DeclaredPasses  int
	CulledPasses    int
	ClearPasses     int
	Resources       int
	CulledResources int
	Allocations     int
	Views           int
	Batches         int
	Barriers        int
	Handoffs        int
	Submissions     int
}

// Observer receives statistics at the end of every Execute.
type Observer interface {
	ObserveFrame(FrameStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameStats)

// ObserveFrame calls f(s).
func (f ObserverFunc) ObserveFrame(s FrameStats) { f(s) }

func (g *Graph) collectStats() {
	s := &g.stats
	s.Label = g.opts.label
	s.Generation = g.gen
	s.DeclaredPasses = int(g.declared)
	s.ClearPasses = len(g.passes) - int(g.declared)
	for i := int32(0); i < g.declared; i++ {
		if g.passes[i].pos < 0 {
			s.CulledPasses++
		}
	}
	s.Resources = len(g.resources)
	for i := range g.resources {
		if !g.resources[i].alive {
			s.CulledResources++
		}
	}
	for i := range g.views {
		if g.views[i].imgView != nil || g.views[i].bufView != nil {
			s.Views++
		}
	}
	s.Batches = len(g.batches)
	s.Barriers = len(g.barriers)
	s.Handoffs = len(g.handoffs)
}

// Stats returns the statistics of the executed generation.
func (g *Graph) Stats() FrameStats { return g.stats }
