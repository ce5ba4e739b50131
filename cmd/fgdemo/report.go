package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/gogpu/framegraph"
)

var (
	headerStyle = color.New(color.FgHiMagenta, color.Bold, color.Underline)
	aliveStyle  = color.New(color.FgHiGreen)
	culledStyle = color.New(color.FgHiBlack)
	clearStyle  = color.New(color.FgHiYellow)
	queueStyle  = color.New(color.FgHiBlue, color.Bold)
)

// renderTable appends rows to a new table on w and renders it. The first
// row is the header.
func renderTable(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("fgdemo: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("fgdemo: render table: %w", err)
	}
	return nil
}

// printPlan writes the passes, batches and resources of an executed frame.
func printPlan(w io.Writer, fp *framegraph.FramePlan) error {
	headerStyle.Fprintf(w, "Generation %d passes\n", fp.Generation)
	rows := [][]string{{"Pos", "Pass", "Queue", "Batch", "Before", "After"}}
	for _, p := range fp.Passes {
		name := p.Name
		switch {
		case p.Clear:
			name = clearStyle.Sprint(name)
		case p.Forced:
			name = aliveStyle.Sprint(name + " (forced)")
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Position),
			name,
			queueStyle.Sprint(p.Queue),
			strconv.Itoa(p.Batch),
			barrierSummary(p.Before),
			barrierSummary(p.After),
		})
	}
	for _, name := range fp.Culled {
		rows = append(rows, []string{"-", culledStyle.Sprint(name + " (culled)"), "", "", "", ""})
	}
	if err := renderTable(w, rows); err != nil {
		return err
	}

	headerStyle.Fprintln(w, "Batches")
	rows = [][]string{{"Batch", "Queue", "Passes", "Waits", "Signal"}}
	for i, b := range fp.Batches {
		var waits []string
		for _, tw := range b.Waits {
			waits = append(waits, fmt.Sprintf("%v>=%d", tw.Queue, tw.Value))
		}
		if len(b.External) > 0 {
			waits = append(waits, fmt.Sprintf("external x%d", len(b.External)))
		}
		signal := "-"
		if b.Signal > 0 {
			signal = strconv.FormatUint(b.Signal, 10)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			queueStyle.Sprint(b.Queue),
			fmt.Sprintf("%d..%d", b.First, b.End-1),
			strings.Join(waits, ", "),
			signal,
		})
	}
	if err := renderTable(w, rows); err != nil {
		return err
	}

	headerStyle.Fprintln(w, "Resources")
	rows = [][]string{{"Resource", "Kind", "Lifetime", "Origin"}}
	for _, r := range fp.Resources {
		origin := "transient"
		if r.Imported {
			origin = "imported"
		}
		label, lifetime := culledStyle.Sprint(r.Label), "culled"
		if r.Alive {
			label = aliveStyle.Sprint(r.Label)
			lifetime = fmt.Sprintf("%d..%d", r.Lifetime.First, r.Lifetime.Last)
		}
		rows = append(rows, []string{label, r.Kind.String(), lifetime, origin})
	}
	return renderTable(w, rows)
}

// barrierSummary counts barriers per kind, e.g. "2 transition, 1 release".
func barrierSummary(barriers []framegraph.Barrier) string {
	var counts [3]int
	for _, b := range barriers {
		counts[b.Kind]++
	}
	var parts []string
	for k, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %v", n, framegraph.BarrierKind(k)))
		}
	}
	return strings.Join(parts, ", ")
}

// printTimings writes the pass timings of a retired generation.
func printTimings(w io.Writer, timings []framegraph.PassTiming) error {
	if len(timings) == 0 {
		return nil
	}
	headerStyle.Fprintln(w, "GPU timings")
	rows := [][]string{{"Pass", "Without sync", "With sync"}}
	for _, pt := range timings {
		rows = append(rows, []string{pt.Name, pt.WithoutSync.String(), pt.WithSync.String()})
	}
	return renderTable(w, rows)
}

// printStats writes the per-frame statistics collected by the observer.
func printStats(w io.Writer, frames []framegraph.FrameStats) error {
	headerStyle.Fprintln(w, "Frames")
	rows := [][]string{{"Gen", "Passes", "Culled", "Clears", "Allocs", "Batches", "Barriers", "Handoffs"}}
	for _, s := range frames {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.Generation), 10),
			strconv.Itoa(s.DeclaredPasses),
			strconv.Itoa(s.CulledPasses),
			strconv.Itoa(s.ClearPasses),
			strconv.Itoa(s.Allocations),
			strconv.Itoa(s.Batches),
			strconv.Itoa(s.Barriers),
			strconv.Itoa(s.Handoffs),
		})
	}
	return renderTable(w, rows)
}
