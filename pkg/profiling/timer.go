// Package profiling records nested timing spans and pprof profiles for the
// command line.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	profiler *Profiler
}

// Stop completes the span. Stopping twice keeps the first duration.
func (s *span) Stop() {
	s.profiler.end(s)
}

// Profiler collects spans into a tree. Spans started while another is open
// become its children.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
}

// New returns an enabled profiler.
func New() *Profiler {
	p := &Profiler{}
	p.enable()
	return p
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler.
func Enable() {
	defaultProfiler.enable()
}

// Enabled reports whether the global profiler records spans.
func Enabled() bool {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	return defaultProfiler.enabled
}

// Start begins a span on the global profiler.
func Start(name string) Stopper {
	return defaultProfiler.Start(name)
}

// Summarize writes the global profiler's span tree to w.
func Summarize(w io.Writer) {
	defaultProfiler.Summarize(w)
}

func (p *Profiler) enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.root = &span{name: "root", start: time.Now(), profiler: p}
	p.stack = []*span{p.root}
}

// Start begins a span. It is a no-op when the profiler is disabled.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return noopStopper{}
	}

	parent := p.stack[len(p.stack)-1]
	s := &span{name: name, start: time.Now(), profiler: p}
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return s
}

func (p *Profiler) end(s *span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.duration == 0 {
		s.duration = time.Since(s.start)
	}
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i] == s {
			p.stack = p.stack[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total run.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled || p.root == nil {
		return
	}

	total := time.Since(p.root.start)
	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, child := range sorted(p.root.children) {
		printSpan(w, child, 0, total)
	}
	fmt.Fprintf(w, "total %v\n", total.Round(100*time.Microsecond))
	fmt.Fprintln(w, "----------------------")
}

func sorted(spans []*span) []*span {
	out := append([]*span(nil), spans...)
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	d := s.duration
	open := ""
	if d == 0 {
		d = time.Since(s.start)
		open = " open"
	}
	pct := 0.0
	if total > 0 {
		pct = float64(d) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%%s)\n", strings.Repeat("  ", depth), s.name, d.Round(100*time.Microsecond), pct, open)
	for _, child := range sorted(s.children) {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
