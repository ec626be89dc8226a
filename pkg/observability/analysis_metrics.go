package observability

import (
	"context"
	"fmt"
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
// progress.
type RunMetrics struct {
	phasesTotal         metric.Int64Counter
	passesTotal         metric.Int64Counter
	phaseDuration       metric.Float64Histogram
	nodesProcessed      metric.Int64Counter
	convergenceWarnings metric.Int64Counter
}

// RunProfile carries one phase's statistics, decoupled from the embedding
// program's scheduler types.
type RunProfile struct {
	Phase          string
	Duration       time.Duration
	Passes         int
	NodesProcessed int
	Converged      bool
}

// NewRunMetrics creates the run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	phases, err := mt.Int64Counter(metricPhasesTotal,
		metric.WithDescription("Total phases completed"),
		metric.WithUnit("{phase}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPhasesTotal, err)
	}

	passes, err := mt.Int64Counter(metricPassesTotal,
		metric.WithDescription("Total convergence passes run, by phase"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPassesTotal, err)
	}

	phaseDur, err := mt.Float64Histogram(metricPhaseDuration,
		metric.WithDescription("Per-phase wall-clock duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPhaseDuration, err)
	}

	nodes, err := mt.Int64Counter(metricNodesProcessed,
		metric.WithDescription("Total graph nodes processed, by phase"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNodesProcessed, err)
	}

	warnings, err := mt.Int64Counter(metricConvergenceWarnings,
		metric.WithDescription("Phases that exhausted max passes without converging"),
		metric.WithUnit("{warning}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConvergenceWarnings, err)
	}

	return &RunMetrics{
		phasesTotal:         phases,
		passesTotal:         passes,
		phaseDuration:       phaseDur,
		nodesProcessed:      nodes,
		convergenceWarnings: warnings,
	}, nil
}

// RecordPhase records one completed phase's statistics. Safe to call on a
// nil receiver (no-op).
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

// RecordRun records every phase profile from a completed analysis run. Safe
// to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, profiles []RunProfile) {
	if rm == nil {
		return
	}

	for _, p := range profiles {
		rm.RecordPhase(ctx, p)
	}
}
