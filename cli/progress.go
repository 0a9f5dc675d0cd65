package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressReporter shows a one-line status of a running recording.
type ProgressReporter struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	start    time.Time
	accepted int
	rejected int
	last     string
	now      func() time.Time
}

// NewProgressReporter creates a reporter writing to out.
func NewProgressReporter(out io.Writer, label string) *ProgressReporter {
	return &ProgressReporter{
		out:   out,
		label: label,
		start: time.Now(),
		now:   time.Now,
	}
}

// Update records new counters and redraws the status line.
func (p *ProgressReporter) Update(accepted, rejected int, lastType string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accepted, p.rejected = accepted, rejected
	if lastType != "" {
		p.last = lastType
	}
	p.render()
}

// render redraws the status line in place.
func (p *ProgressReporter) render() {
	elapsed := p.now().Sub(p.start).Round(time.Second)
	line := fmt.Sprintf("[~] %s [%s] %d actions", p.label, elapsed, p.accepted)
	if p.rejected > 0 {
		line += fmt.Sprintf(", %d rejected", p.rejected)
	}
	if p.last != "" {
		line += " (last: " + p.last + ")"
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
}

// Done ends the status line with the final counters.
func (p *ProgressReporter) Done(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbol := "[*]"
	if err != nil {
		symbol = "[x]"
	}
	elapsed := p.now().Sub(p.start).Round(time.Millisecond)
	fmt.Fprintf(p.out, "\r\033[K%s %s: %d actions recorded in %s\n", symbol, p.label, p.accepted, elapsed)
}
