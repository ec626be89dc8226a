package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/javagraph/javagraph/internal/observability"
)

type stubCacheStats struct {
	hits   int64
	misses int64
}

func (s *stubCacheStats) CacheHits() int64   { return s.hits }
func (s *stubCacheStats) CacheMisses() int64 { return s.misses }

func TestRegisterCacheMetrics_Exported(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	blob := &stubCacheStats{hits: 10, misses: 3}

	require.NoError(t, observability.RegisterCacheMetrics(meter, blob))

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	hits := findMetric(rm, "javagraph.cache.hits")
	require.NotNil(t, hits, "javagraph.cache.hits metric not found")

	misses := findMetric(rm, "javagraph.cache.misses")
	require.NotNil(t, misses, "javagraph.cache.misses metric not found")

	hitsGauge, ok := hits.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "expected Gauge data type for hits")
	require.Len(t, hitsGauge.DataPoints, 1)
	assert.Equal(t, int64(10), hitsGauge.DataPoints[0].Value)

	missesGauge, ok := misses.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "expected Gauge data type for misses")
	require.Len(t, missesGauge.DataPoints, 1)
	assert.Equal(t, int64(3), missesGauge.DataPoints[0].Value)
}

func TestRegisterCacheMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	require.NoError(t, observability.RegisterCacheMetrics(meter, nil))
}
