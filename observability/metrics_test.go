package observability

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collect gathers recorded metrics from the manual reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	sums := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestRecordPublish(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := NewWithMeter(provider.Meter(meterName))

	m.RecordPublish(context.Background(), "job:new", 3, 1)
	m.RecordPublish(context.Background(), "app:status", 1, 0)

	sums := collect(t, reader)
	if sums["talentwire.events.published"] != 2 {
		t.Errorf("published = %d, want 2", sums["talentwire.events.published"])
	}
	if sums["talentwire.events.delivered"] != 4 {
		t.Errorf("delivered = %d, want 4", sums["talentwire.events.delivered"])
	}
	if sums["talentwire.events.dropped"] != 1 {
		t.Errorf("dropped = %d, want 1", sums["talentwire.events.dropped"])
	}
}

func TestRecordCascadeAndImport(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := NewWithMeter(provider.Meter(meterName))

	m.RecordCascade(context.Background(), 2, 1, 1)
	m.RecordImport(context.Background(), "adzuna", 5, 3, 0)

	sums := collect(t, reader)
	if sums["talentwire.cascade.mutations"] != 4 {
		t.Errorf("cascade mutations = %d, want 4", sums["talentwire.cascade.mutations"])
	}
	if sums["talentwire.import.listings"] != 8 {
		t.Errorf("import listings = %d, want 8", sums["talentwire.import.listings"])
	}
}

func TestNoopWithoutProvider(t *testing.T) {
	t.Parallel()

	// Global provider defaults to noop; recording must not panic.
	m := New()
	m.RecordPublish(context.Background(), "job:new", 1, 0)
	m.RecordCascade(context.Background(), 1, 0, 0)
	m.RecordImport(context.Background(), "test", 1, 0, 0)
}
