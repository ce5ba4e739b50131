package framegraph

import "time"

// PassTiming is the GPU time of one pass in a retired generation.
// WithoutSync covers only the pass's own commands; WithSync also covers the
// barriers recorded in front of it.
type PassTiming struct {
	Name        string
	WithoutSync time.Duration
	WithSync    time.Duration
}

// stampsPerPass is the number of timestamp slots one pass consumes: before
// its barriers, after its barriers and after its commands.
const stampsPerPass = 3

// timingState tracks the query pool of the current generation and the
// results of the last retired one.
type timingState struct {
	pool    QueryPool
	used    int
	names   []string
	results []PassTiming
}

// begin creates this generation's query pool when timing is enabled.
func (t *timingState) begin(dev Device, opts *options) error {
	t.used = 0
	t.names = t.names[:0]
	if !opts.timing || dev.TimestampPeriod() == 0 {
		return nil
	}
	pool, err := dev.CreateQueryPool(opts.timestampBudget)
	if err != nil {
		return err
	}
	t.pool = pool
	return nil
}

// enabled reports whether the current generation writes timestamps.
func (t *timingState) enabled() bool { return t.pool != nil }

// reserve hands out the first slot of a pass's three timestamps.
func (t *timingState) reserve(name string, budget int) int {
	assert(t.used+stampsPerPass <= budget, "timestamp budget of %d exceeded at pass %q", budget, name)
	base := t.used
	t.used += stampsPerPass
	t.names = append(t.names, name)
	return base
}

// read converts the raw stamps of a retired generation into durations.
func (t *timingState) read(dev Device) error {
	t.results = t.results[:0]
	if t.pool == nil || t.used == 0 {
		return nil
	}
	raw, err := dev.ReadTimestamps(t.pool, t.used)
	if err != nil {
		return err
	}
	period := dev.TimestampPeriod()
	ticks := func(a, b uint64) time.Duration {
		if b < a {
			return 0
		}
		return time.Duration(float64(b-a) * period)
	}
	for i, name := range t.names {
		s := raw[i*stampsPerPass : (i+1)*stampsPerPass]
		t.results = append(t.results, PassTiming{
			Name:        name,
			WithoutSync: ticks(s[1], s[2]),
			WithSync:    ticks(s[0], s[2]),
		})
	}
	return nil
}

func (t *timingState) destroy(dev Device) {
	if t.pool != nil {
		dev.DestroyQueryPool(t.pool)
		t.pool = nil
	}
	t.used = 0
	t.names = t.names[:0]
}

// readTimings is called by Reset once the generation has retired.
func (g *Graph) readTimings() {
	if err := g.timing.read(g.dev); err != nil {
		Logger().Warn("framegraph: timestamp readback failed", "err", err)
	}
}

// Timings returns the pass timings of the most recently retired generation,
// in submission order. The slice is reused by the next Reset.
func (g *Graph) Timings() []PassTiming {
	return g.timing.results
}
