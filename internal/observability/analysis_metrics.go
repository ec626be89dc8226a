package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPhasesTotal         = "javagraph.analysis.phases.total"
	metricPassesTotal         = "javagraph.analysis.passes.total"
	metricPhaseDuration       = "javagraph.analysis.phase.duration.seconds"
	metricNodesProcessed      = "javagraph.analysis.nodes_processed.total"
	metricConvergenceWarnings = "javagraph.analysis.convergence_warnings.total"

	attrPhase = "phase"
)

// RunMetrics holds OTel instruments for one analysis run's phase-by-phase
// progress, mirroring the fields of progress.ExecutionProfile.
type RunMetrics struct {
	phasesTotal         metric.Int64Counter
	passesTotal         metric.Int64Counter
	phaseDuration       metric.Float64Histogram
	nodesProcessed      metric.Int64Counter
	convergenceWarnings metric.Int64Counter
}

// RunProfile carries the subset of progress.ExecutionProfile that RecordRun
// needs, decoupled from the schedule/progress packages to avoid an import
// cycle back into them.
type RunProfile struct {
	Phase          string
	Duration       time.Duration
	Passes         int
	NodesProcessed int
	Converged      bool
}

// NewRunMetrics creates the run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		phasesTotal:         b.counter(metricPhasesTotal, "Total phases completed", "{phase}"),
		passesTotal:         b.counter(metricPassesTotal, "Total convergence passes run, by phase", "{pass}"),
		phaseDuration:       b.histogram(metricPhaseDuration, "Per-phase wall-clock duration in seconds", "s", durationBucketBoundaries...),
		nodesProcessed:      b.counter(metricNodesProcessed, "Total graph nodes processed, by phase", "{node}"),
		convergenceWarnings: b.counter(metricConvergenceWarnings, "Phases that exhausted max passes without converging", "{warning}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordPhase records one completed phase's statistics. Safe to call on a
// nil receiver (no-op), so callers need not guard every call site.
func (rm *RunMetrics) RecordPhase(ctx context.Context, p RunProfile) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrPhase, p.Phase))

	rm.phasesTotal.Add(ctx, 1, attrs)
	rm.passesTotal.Add(ctx, int64(p.Passes), attrs)
	rm.phaseDuration.Record(ctx, p.Duration.Seconds(), attrs)
	rm.nodesProcessed.Add(ctx, int64(p.NodesProcessed), attrs)

	if !p.Converged {
		rm.convergenceWarnings.Add(ctx, 1, attrs)
	}
}

// RecordRun records every phase profile from a completed scheduler run.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, profiles []RunProfile) {
	if rm == nil {
		return
	}

	for _, p := range profiles {
		rm.RecordPhase(ctx, p)
	}
}
