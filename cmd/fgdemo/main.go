// Command fgdemo loads a frame description from YAML, executes it for a
// number of frames on a framegraph backend and prints the compiled plan.
//
//	fgdemo -frame testdata/deferred.yaml -frames 3 -timing
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	_ "github.com/gogpu/framegraph/backend/native"
	_ "github.com/gogpu/framegraph/backend/trace"
	"github.com/gogpu/framegraph/metrics"
)

type config struct {
	framePath   string
	backendName string
	frames      int
	timing      bool
	verbose     bool
	showMetrics bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.framePath, "frame", "testdata/deferred.yaml", "frame description (YAML)")
	flag.StringVar(&cfg.backendName, "backend", "", "backend name (empty selects the best available: "+strings.Join(backend.Available(), ", ")+")")
	flag.IntVar(&cfg.frames, "frames", 3, "number of frames to execute")
	flag.BoolVar(&cfg.timing, "timing", false, "collect GPU pass timings")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.BoolVar(&cfg.showMetrics, "metrics", false, "print collected Prometheus metrics")
	flag.Parse()

	if cfg.verbose {
		framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("fgdemo: %v", err)
	}
}

func run(cfg config, w io.Writer) error {
	file, err := os.Open(cfg.framePath)
	if err != nil {
		return err
	}
	frame, err := LoadFrame(file)
	file.Close()
	if err != nil {
		return err
	}

	var (
		b   backend.DeviceBackend
		dev framegraph.Device
	)
	if cfg.backendName == "" {
		b, dev, err = backend.Default()
	} else {
		b, dev, err = backend.Open(cfg.backendName)
	}
	if err != nil {
		return err
	}
	defer b.Close()
	fmt.Fprintf(w, "backend: %s\n", b.Name())

	sc, err := newScene(frame, dev)
	if err != nil {
		return err
	}
	defer sc.close()

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	var frames []framegraph.FrameStats
	observer := framegraph.ObserverFunc(func(s framegraph.FrameStats) {
		frames = append(frames, s)
		collector.ObserveFrame(s)
	})

	g := framegraph.New(dev,
		framegraph.WithLabel(frame.Label),
		framegraph.WithTiming(cfg.timing),
		framegraph.WithObserver(observer),
	)
	defer g.Close()

	for i := range cfg.frames {
		final := sc.declare(g)
		if err := g.Execute(final, frame.access, nil); err != nil {
			_ = g.Reset()
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if i == cfg.frames-1 {
			if err := printPlan(w, g.Plan()); err != nil {
				return err
			}
		}
		if err := g.Reset(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		collector.ObserveTimings(frame.Label, g.Timings())
	}

	if err := printTimings(w, g.Timings()); err != nil {
		return err
	}
	if err := printStats(w, frames); err != nil {
		return err
	}
	if cfg.showMetrics {
		return printMetrics(w, reg)
	}
	return nil
}

// printMetrics writes every counter and gauge series gathered from reg.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("fgdemo: gather metrics: %w", err)
	}
	headerStyle.Fprintln(w, "Metrics")
	rows := [][]string{{"Metric", "Labels", "Value"}}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprint(m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				value = fmt.Sprint(m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("n=%d sum=%.6fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{mf.GetName(), strings.Join(labels, " "), value})
		}
	}
	return renderTable(w, rows)
}
