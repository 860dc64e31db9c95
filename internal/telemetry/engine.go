package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics records station queries, interpolation runs and catalog syncs.
type EngineMetrics struct {
	filterResults   metric.Int64Histogram
	parameterDrops  metric.Int64Counter
	interpolations  metric.Int64Counter
	interpolationIt metric.Int64Histogram
	syncedStations  metric.Int64Counter
	syncFailures    metric.Int64Counter
}

// NewEngineMetrics creates the instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	var err error

	if m.filterResults, err = meter.Int64Histogram("stationkit.stations.filter.results",
		metric.WithDescription("Stations returned per filter call"),
		metric.WithUnit("{station}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 50, 100, 500, 1000, 5000),
	); err != nil {
		return nil, err
	}
	if m.parameterDrops, err = meter.Int64Counter("stationkit.parameters.dropped",
		metric.WithDescription("Parameter specs that could not be resolved"),
	); err != nil {
		return nil, err
	}
	if m.interpolations, err = meter.Int64Counter("stationkit.interpolation.selections",
		metric.WithDescription("Interpolation candidate selections"),
	); err != nil {
		return nil, err
	}
	if m.interpolationIt, err = meter.Int64Histogram("stationkit.interpolation.iterations",
		metric.WithDescription("Stations tried per candidate selection"),
		metric.WithExplicitBucketBoundaries(1, 3, 5, 10, 20, 50),
	); err != nil {
		return nil, err
	}
	if m.syncedStations, err = meter.Int64Counter("stationkit.sync.stations",
		metric.WithDescription("Stations written by catalog syncs"),
		metric.WithUnit("{station}"),
	); err != nil {
		return nil, err
	}
	if m.syncFailures, err = meter.Int64Counter("stationkit.sync.failures",
		metric.WithDescription("Failed catalog syncs"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordFilter records the size of one filter result.
func (m *EngineMetrics) RecordFilter(ctx context.Context, provider, filter string, rows int) {
	if m == nil {
		return
	}
	m.filterResults.Record(ctx, int64(rows), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("filter", filter),
	))
}

// RecordDroppedParameters counts unresolved parameter specs.
func (m *EngineMetrics) RecordDroppedParameters(ctx context.Context, provider string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.parameterDrops.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordInterpolation records one candidate selection.
func (m *EngineMetrics) RecordInterpolation(ctx context.Context, parameter string, iterations int, sufficient bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("parameter", parameter),
		attribute.Bool("sufficient", sufficient),
	)
	m.interpolations.Add(ctx, 1, attrs)
	m.interpolationIt.Record(ctx, int64(iterations), attrs)
}

// RecordSync records the outcome of one catalog sync.
func (m *EngineMetrics) RecordSync(ctx context.Context, catalog string, stations int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("catalog", catalog))
	if err != nil {
		m.syncFailures.Add(ctx, 1, attrs)
		return
	}
	m.syncedStations.Add(ctx, int64(stations), attrs)
}
