package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// BatchProgress renders batch progress. It implements the batch runner's
// Observer interface so it can be passed to Runner.WithMetrics alongside
// or instead of the Prometheus metrics.
type BatchProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	errors  int64
	started time.Time
	writer  io.Writer
}

// NewBatchProgress creates a progress reporter for total evaluations that
// writes to w. If w is nil, it defaults to os.Stderr.
func NewBatchProgress(w io.Writer, total int) *BatchProgress {
	if w == nil {
		w = os.Stderr
	}
	return &BatchProgress{
		total:   int64(total),
		started: time.Now(),
		writer:  w,
	}
}

// Observe counts one completed evaluation.
func (p *BatchProgress) Observe(result *engine.Result, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if result != nil && result.Outcome == ast.OutcomeError {
		p.errors++
	}
	p.render()
}

// Finish ends the progress line.
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.render()
	fmt.Fprintln(p.writer)
}

// Counts returns the completed and failed evaluation counts.
func (p *BatchProgress) Counts() (completed, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.errors
}

func (p *BatchProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	barWidth := 40
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.writer, "\rEvaluating: [%s] %.1f%% (%d/%d) %d errors %.1f eval/s",
		bar, percent, p.current, p.total, p.errors, rate)
}
