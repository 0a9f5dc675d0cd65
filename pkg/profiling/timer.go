// Package profiling times the stages of a recorder command and can write
// pprof profiles. Timing is off until Enable is called; Start is then cheap
// enough to leave in place around every stage.
package profiling

import (
	"fmt"
	"io"
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
	tracer   *Tracer
}

func (s *span) Stop() {
	s.tracer.end(s)
}

// Tracer records nested spans. Spans started while another is open become
// its children.
type Tracer struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	open    []*span
	now     func() time.Time
}

var defaultTracer = &Tracer{now: time.Now}

// Enable turns on the process-wide tracer. Calling it again has no effect.
func Enable() { defaultTracer.Enable() }

// Start opens a span on the process-wide tracer.
func Start(name string) Stopper { return defaultTracer.Start(name) }

// Summarize writes the process-wide span tree to w.
func Summarize(w io.Writer) { defaultTracer.Summarize(w) }

// Reset disables the process-wide tracer and forgets its spans.
func Reset() {
	defaultTracer.mu.Lock()
	defer defaultTracer.mu.Unlock()
	defaultTracer.enabled = false
	defaultTracer.root = nil
	defaultTracer.open = nil
}

// Enable starts the root span.
func (t *Tracer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return
	}
	t.enabled = true
	t.root = &span{name: "total", start: t.now(), tracer: t}
	t.open = []*span{t.root}
}

// Start opens a span under the innermost open span.
func (t *Tracer) Start(name string) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return noop{}
	}
	parent := t.open[len(t.open)-1]
	s := &span{name: name, start: t.now(), tracer: t}
	parent.children = append(parent.children, s)
	t.open = append(t.open, s)
	return s
}

// end closes s and any spans opened inside it that were left running.
func (t *Tracer) end(s *span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.duration == 0 {
		s.duration = t.now().Sub(s.start)
	}
	for i := len(t.open) - 1; i > 0; i-- {
		if t.open[i] == s {
			for _, inner := range t.open[i+1:] {
				if inner.duration == 0 {
					inner.duration = t.now().Sub(inner.start)
				}
			}
			t.open = t.open[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (t *Tracer) Summarize(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.root == nil {
		return
	}
	total := t.now().Sub(t.root.start)
	fmt.Fprintf(w, "Timing (%v total)\n", total.Round(100*time.Microsecond))
	for _, c := range t.root.children {
		printSpan(w, c, 1, total)
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), pct)
	for _, c := range s.children {
		printSpan(w, c, depth+1, total)
	}
}

type noop struct{}

func (noop) Stop() {}
