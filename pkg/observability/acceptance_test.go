package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/javagraph/javagraph/pkg/observability"
)

// acceptanceSpanCount is the expected number of spans in the acceptance test
// (root + phase + inspector).
const acceptanceSpanCount = 3

// acceptanceNodesProcessed is the simulated node count used in log assertions.
const acceptanceNodesProcessed = 42

// TestAcceptance_EndToEnd verifies all three observability signals (traces,
// metrics, structured logs with trace context) work together in a single
// simulated pipeline run.
func TestAcceptance_EndToEnd(t *testing.T) {
	t.Parallel()

	// Setup: in-memory trace exporter.
	spanExporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanExporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := tp.Tracer("javagraph")

	// Setup: in-memory metric reader.
	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	meter := mp.Meter("javagraph")

	red, err := observability.NewREDMetrics(meter)
	require.NoError(t, err)

	analysis, err := observability.NewRunMetrics(meter)
	require.NoError(t, err)

	// Setup: structured logger with trace context.
	var logBuf bytes.Buffer

	innerHandler := slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	tracingHandler := observability.NewTracingHandler(innerHandler, "javagraph", "test", observability.ModeCLI)
	logger := slog.New(tracingHandler)

	// Simulate pipeline: root span, child spans, metrics, logs.
	ctx, rootSpan := tracer.Start(context.Background(), "javagraph.run")

	_, phaseSpan := tracer.Start(ctx, "javagraph.phase.java_class_analysis")
	phaseSpan.End()

	_, inspectSpan := tracer.Start(ctx, "javagraph.inspector.WeightedMethods")
	inspectSpan.End()

	// Record metrics within the trace context.
	red.RecordRequest(ctx, "cli.run", "ok", time.Second)

	analysis.RecordRun(ctx, []observability.RunProfile{
		{
			Phase:          "java_class_analysis",
			Duration:       3 * time.Second,
			Passes:         2,
			NodesProcessed: acceptanceNodesProcessed,
			Converged:      true,
		},
	})

	// Emit a log line within the trace context.
	logger.InfoContext(ctx, "pipeline.complete", "nodes_processed", acceptanceNodesProcessed)

	rootSpan.End()

	// Assert: Traces.
	spans := spanExporter.GetSpans()
	require.Len(t, spans, acceptanceSpanCount, "expected root + 2 child spans")

	spanNames := make(map[string]bool, len(spans))
	for _, s := range spans {
		spanNames[s.Name] = true
	}

	assert.True(t, spanNames["javagraph.run"], "root span should exist")
	assert.True(t, spanNames["javagraph.phase.java_class_analysis"], "phase span should exist")
	assert.True(t, spanNames["javagraph.inspector.WeightedMethods"], "inspector span should exist")

	// All spans share the same trace ID.
	traceID := spans[0].SpanContext.TraceID()
	for _, s := range spans[1:] {
		assert.Equal(t, traceID, s.SpanContext.TraceID(),
			"span %q should share trace ID", s.Name)
	}

	// Assert: Metrics.
	var rm metricdata.ResourceMetrics

	err = metricReader.Collect(ctx, &rm)
	require.NoError(t, err)

	reqTotal := findMetric(rm, "javagraph.requests.total")
	require.NotNil(t, reqTotal, "request counter should be recorded")

	reqDuration := findMetric(rm, "javagraph.request.duration.seconds")
	require.NotNil(t, reqDuration, "duration histogram should be recorded")

	// Assert: Analysis metrics.
	phasesTotal := findMetric(rm, "javagraph.analysis.phases.total")
	require.NotNil(t, phasesTotal, "analysis phases counter should be recorded")

	passesTotal := findMetric(rm, "javagraph.analysis.passes.total")
	require.NotNil(t, passesTotal, "analysis passes counter should be recorded")

	phaseDuration := findMetric(rm, "javagraph.analysis.phase.duration.seconds")
	require.NotNil(t, phaseDuration, "phase duration histogram should be recorded")

	nodesProcessed := findMetric(rm, "javagraph.analysis.nodes_processed.total")
	require.NotNil(t, nodesProcessed, "nodes processed counter should be recorded")

	// Assert: Logs contain trace_id.
	var logRecord map[string]any

	err = json.Unmarshal(logBuf.Bytes(), &logRecord)
	require.NoError(t, err)

	assert.Equal(t, traceID.String(), logRecord["trace_id"],
		"log line should contain the active trace_id")
	assert.Contains(t, logRecord, "span_id",
		"log line should contain span_id")
	assert.Equal(t, "javagraph", logRecord["service"],
		"log line should contain service name")

	nodes, ok := logRecord["nodes_processed"].(float64)
	require.True(t, ok, "nodes_processed should be a number")
	assert.InDelta(t, acceptanceNodesProcessed, nodes, 0,
		"log line should contain custom attributes")
}
