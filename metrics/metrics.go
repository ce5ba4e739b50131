// Package metrics exports framegraph frame statistics and pass timings as
// Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	c := metrics.New(reg)
//	g := framegraph.New(dev, framegraph.WithObserver(c))
//	...
//	g.Reset()
//	c.ObserveTimings("main", g.Timings())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogpu/framegraph"
)

const namespace = "framegraph"

// Pass outcomes used as the "outcome" label of framegraph_passes_total.
const (
	OutcomeExecuted = "executed"
	OutcomeCulled   = "culled"
	OutcomeClear    = "clear"
)

// Collector records framegraph.FrameStats as Prometheus metrics. Every
// series carries a "graph" label taken from the graph's WithLabel option,
// so one Collector can observe several graphs.
type Collector struct {
	frames      *prometheus.CounterVec
	passes      *prometheus.CounterVec
	resources   *prometheus.CounterVec
	allocations *prometheus.CounterVec
	barriers    *prometheus.CounterVec
	handoffs    *prometheus.CounterVec
	submissions *prometheus.CounterVec
	batches     *prometheus.GaugeVec
	generation  *prometheus.GaugeVec
	passTime    *prometheus.HistogramVec
}

var (
	_ framegraph.Observer  = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// New creates a Collector and registers its metrics with reg. With a nil
// reg the metrics stay unregistered and the Collector itself can be
// registered later.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	graph := []string{"graph"}
	return &Collector{
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Executed frames.",
		}, graph),
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Passes by outcome: executed, culled, or inserted clear.",
		}, []string{"graph", "outcome"}),
		resources: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Declared resources by whether they survived culling.",
		}, []string{"graph", "alive"}),
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Physical images and buffers created.",
		}, graph),
		barriers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barriers_total",
			Help:      "Barriers recorded, including both halves of queue handoffs.",
		}, graph),
		handoffs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Cross-queue ownership transfers.",
		}, graph),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Batches submitted to a queue.",
		}, graph),
		batches: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_batches",
			Help:      "Batches in the most recent frame.",
		}, graph),
		generation: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Generation number of the most recent frame.",
		}, graph),
		passTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_gpu_seconds",
			Help:      "GPU time of a pass, excluding the barriers in front of it.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"graph", "pass"}),
	}
}

// ObserveFrame implements framegraph.Observer.
func (c *Collector) ObserveFrame(s framegraph.FrameStats) {
	g := s.Label
	executed := s.DeclaredPasses - s.CulledPasses

	c.frames.WithLabelValues(g).Inc()
	c.passes.WithLabelValues(g, OutcomeExecuted).Add(float64(executed))
	c.passes.WithLabelValues(g, OutcomeCulled).Add(float64(s.CulledPasses))
	c.passes.WithLabelValues(g, OutcomeClear).Add(float64(s.ClearPasses))
	c.resources.WithLabelValues(g, "true").Add(float64(s.Resources - s.CulledResources))
	c.resources.WithLabelValues(g, "false").Add(float64(s.CulledResources))
	c.allocations.WithLabelValues(g).Add(float64(s.Allocations))
	c.barriers.WithLabelValues(g).Add(float64(s.Barriers))
	c.handoffs.WithLabelValues(g).Add(float64(s.Handoffs))
	c.submissions.WithLabelValues(g).Add(float64(s.Submissions))
	c.batches.WithLabelValues(g).Set(float64(s.Batches))
	c.generation.WithLabelValues(g).Set(float64(s.Generation))
}

// ObserveTimings records the pass timings of a retired generation, as
// returned by Graph.Timings after Reset.
func (c *Collector) ObserveTimings(graph string, timings []framegraph.PassTiming) {
	for _, pt := range timings {
		c.passTime.WithLabelValues(graph, pt.Name).Observe(pt.WithoutSync.Seconds())
	}
}

func (c *Collector) vecs() []prometheus.Collector {
	return []prometheus.Collector{
		c.frames, c.passes, c.resources, c.allocations, c.barriers,
		c.handoffs, c.submissions, c.batches, c.generation, c.passTime,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, v := range c.vecs() {
		v.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, v := range c.vecs() {
		v.Collect(ch)
	}
}
