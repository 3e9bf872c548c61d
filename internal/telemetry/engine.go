package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// EngineMetrics instruments UV engine evaluations. It satisfies
// recompute.Recorder.
type EngineMetrics struct {
	calculations metric.Int64Counter
	duration     metric.Float64Histogram
	uvIndex      metric.Float64Histogram
	belowHorizon metric.Int64Counter
	discarded    metric.Int64Counter
}

// NewEngineMetrics registers the engine instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	calculations, err := meter.Int64Counter(
		"uv.engine.calculations",
		metric.WithDescription("Number of UV engine evaluations"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"uv.engine.duration",
		metric.WithDescription("Time spent in one UV engine evaluation"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, err
	}

	uvIndex, err := meter.Float64Histogram(
		"uv.engine.index",
		metric.WithDescription("Distribution of computed UV Index values"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 3, 6, 8, 11),
	)
	if err != nil {
		return nil, err
	}

	belowHorizon, err := meter.Int64Counter(
		"uv.engine.below_horizon",
		metric.WithDescription("Evaluations where the sun was at or below the horizon"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return nil, err
	}

	discarded, err := meter.Int64Counter(
		"uv.recompute.discarded",
		metric.WithDescription("Recomputations dropped because newer inputs arrived"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		calculations: calculations,
		duration:     duration,
		uvIndex:      uvIndex,
		belowHorizon: belowHorizon,
		discarded:    discarded,
	}, nil
}

// RecordCalculation records one evaluation and its outcome.
func (m *EngineMetrics) RecordCalculation(ctx context.Context, result uv.Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("risk", result.Risk.String()))

	m.calculations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond))
	if result.SunBelowHorizon {
		m.belowHorizon.Add(ctx, 1)
		return
	}
	m.uvIndex.Record(ctx, result.UVIndex, attrs)
}

// RecordDiscarded records a stale recomputation that was not published.
func (m *EngineMetrics) RecordDiscarded(ctx context.Context) {
	m.discarded.Add(ctx, 1)
}
