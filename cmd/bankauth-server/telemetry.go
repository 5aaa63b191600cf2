package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/bankAuth/metrics/export/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// logExporter is a push exporter that writes each collection as one log
// entry. It stands in for an OTLP exporter until a collector is deployed.
type logExporter struct {
	logger *zap.Logger
}

func (e logExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (e logExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (e logExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	points := flattenPoints(rm)
	if len(points) == 0 {
		return nil
	}
	e.logger.Info("metrics", zap.Any("points", points))
	return nil
}

func (e logExporter) ForceFlush(context.Context) error { return nil }

func (e logExporter) Shutdown(context.Context) error { return nil }

// flattenPoints keys every int64 data point as name{attrs}.
func flattenPoints(rm *metricdata.ResourceMetrics) map[string]int64 {
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			}
			for _, dp := range points {
				key := m.Name
				if dp.Attributes.Len() > 0 {
					key += "{" + dp.Attributes.Encoded(attribute.DefaultEncoder()) + "}"
				}
				out[key] = dp.Value
			}
		}
	}
	return out
}

// startOTel registers the engine on a meter provider that pushes to the log
// every interval. The returned stop flushes once more and shuts down.
func startOTel(source otel.Source, interval time.Duration, logger *zap.Logger) (func(context.Context) error, error) {
	reader := sdkmetric.NewPeriodicReader(logExporter{logger: logger}, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := otel.New(provider.Meter("github.com/MrEthical07/bankAuth"), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	// Shutdown runs the final collection, so the callback is removed after it.
	return func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if cerr := exp.Close(); cerr != nil {
			logger.Warn("otel exporter close failed", zap.Error(cerr))
		}
		return err
	}, nil
}
