package telemetry_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sunsafe/sunsafe/internal/telemetry"
	"github.com/sunsafe/sunsafe/internal/uv"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestEngineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewEngineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCalculation(ctx, uv.Result{UVIndex: 7, Risk: uv.RiskHigh, BurnTimeWithSPFSeconds: 900}, time.Microsecond)
	m.RecordCalculation(ctx, uv.BelowHorizon(), time.Microsecond)
	m.RecordDiscarded(ctx)
	m.RecordDiscarded(ctx)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["uv.engine.calculations"]))
	assert.Equal(t, int64(1), sumOf(t, data["uv.engine.below_horizon"]))
	assert.Equal(t, int64(2), sumOf(t, data["uv.recompute.discarded"]))

	hist, ok := data["uv.engine.index"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, 7.0, hist.DataPoints[0].Sum)
	assert.False(t, math.IsInf(hist.DataPoints[0].Sum, 0))
}
