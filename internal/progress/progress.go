// Package progress defines the tick-event reporter abstraction the
// scheduler publishes to, plus the ExecutionProfile diagnostics record
// produced once per phase.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// ExecutionProfile is the structured record the scheduler publishes for
// one phase: name, start/end wall time, nodes processed, passes used, and
// whether the phase converged before hitting maxPasses.
type ExecutionProfile struct {
	Phase         string
	StartedAt     time.Time
	FinishedAt    time.Time
	NodesProcessed int
	Passes        int
	Converged     bool
}

// Duration returns the phase's wall-clock duration.
func (p ExecutionProfile) Duration() time.Duration {
	return p.FinishedAt.Sub(p.StartedAt)
}

// Reporter receives tick events as the scheduler advances through phases
// and passes. Implementations must be safe for concurrent Tick calls, since
// multiple (inspector, node) pairs may report progress within one layer.
type Reporter interface {
	// StartPhase announces a new phase with an expected total unit count
	// (0 when unknown).
	StartPhase(phase string, total int)
	// Tick reports n additional completed units within the current phase.
	Tick(n int)
	// FinishPhase closes out the current phase's reporting.
	FinishPhase(profile ExecutionProfile)
}

// Silent is a no-op Reporter, useful for library callers and tests.
type Silent struct{}

func (Silent) StartPhase(string, int)          {}
func (Silent) Tick(int)                        {}
func (Silent) FinishPhase(ExecutionProfile)    {}

// TextReporter renders a schollz/progressbar/v3 bar to w for each phase.
type TextReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewTextReporter builds a TextReporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// StartPhase implements Reporter.
func (t *TextReporter) StartPhase(phase string, total int) {
	if total <= 0 {
		total = -1
	}

	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(phase),
		progressbar.OptionSetWriter(t.w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Tick implements Reporter.
func (t *TextReporter) Tick(n int) {
	if t.bar != nil {
		_ = t.bar.Add(n)
	}
}

// FinishPhase implements Reporter, printing a one-line summary after the
// bar clears.
func (t *TextReporter) FinishPhase(profile ExecutionProfile) {
	if t.bar != nil {
		_ = t.bar.Finish()
	}

	fmt.Fprintf(t.w, "%s: %d node(s) in %d pass(es), converged=%v, took %s\n",
		profile.Phase, profile.NodesProcessed, profile.Passes, profile.Converged,
		humanize.RelTime(profile.StartedAt, profile.FinishedAt, "", ""))
}
