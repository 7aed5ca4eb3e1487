// Package observability records marketplace lifecycle metrics via
// OpenTelemetry. If no MeterProvider is configured the OTel API
// returns noop instruments and recording becomes a pass-through.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for talentwire metrics.
const meterName = "github.com/xraph/talentwire"

// Metrics holds the counters recorded across the subsystem.
//
// Instruments:
//   - talentwire.events.published (Int64Counter): events handed to the
//     dispatcher, with attribute event_type
//   - talentwire.events.delivered (Int64Counter): per-connection
//     deliveries
//   - talentwire.events.dropped (Int64Counter): per-connection drops
//   - talentwire.cascade.mutations (Int64Counter): cascaded job
//     mutations, with attribute result ("applied", "skipped", "failed")
//   - talentwire.import.listings (Int64Counter): processed listings,
//     with attributes provider and result ("imported", "skipped",
//     "failed")
type Metrics struct {
	EventsPublished  metric.Int64Counter
	EventsDelivered  metric.Int64Counter
	EventsDropped    metric.Int64Counter
	CascadeMutations metric.Int64Counter
	ImportListings   metric.Int64Counter
}

// New creates Metrics using the global OTel MeterProvider.
func New() *Metrics {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates Metrics using the provided meter. This variant
// allows injecting a specific MeterProvider for testing.
func NewWithMeter(meter metric.Meter) *Metrics {
	m := &Metrics{}

	var err error
	m.EventsPublished, err = meter.Int64Counter(
		"talentwire.events.published",
		metric.WithDescription("Events handed to the dispatcher"),
		metric.WithUnit("{event}"),
	)
	_ = err // noop fallback guaranteed by OTel API contract

	m.EventsDelivered, err = meter.Int64Counter(
		"talentwire.events.delivered",
		metric.WithDescription("Per-connection event deliveries"),
		metric.WithUnit("{event}"),
	)
	_ = err

	m.EventsDropped, err = meter.Int64Counter(
		"talentwire.events.dropped",
		metric.WithDescription("Per-connection event drops"),
		metric.WithUnit("{event}"),
	)
	_ = err

	m.CascadeMutations, err = meter.Int64Counter(
		"talentwire.cascade.mutations",
		metric.WithDescription("Cascaded job status mutations"),
		metric.WithUnit("{mutation}"),
	)
	_ = err

	m.ImportListings, err = meter.Int64Counter(
		"talentwire.import.listings",
		metric.WithDescription("External listings processed by the importer"),
		metric.WithUnit("{listing}"),
	)
	_ = err

	return m
}

// RecordPublish records one published event and its delivery/drop
// counts.
func (m *Metrics) RecordPublish(ctx context.Context, eventType string, delivered, dropped int) {
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
	if delivered > 0 {
		m.EventsDelivered.Add(ctx, int64(delivered))
	}
	if dropped > 0 {
		m.EventsDropped.Add(ctx, int64(dropped))
	}
}

// RecordCascade records cascaded mutation results.
func (m *Metrics) RecordCascade(ctx context.Context, applied, skipped, failed int) {
	if applied > 0 {
		m.CascadeMutations.Add(ctx, int64(applied), metric.WithAttributes(attribute.String("result", "applied")))
	}
	if skipped > 0 {
		m.CascadeMutations.Add(ctx, int64(skipped), metric.WithAttributes(attribute.String("result", "skipped")))
	}
	if failed > 0 {
		m.CascadeMutations.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("result", "failed")))
	}
}

// RecordImport records one provider's import counts.
func (m *Metrics) RecordImport(ctx context.Context, provider string, imported, skipped, failed int) {
	record := func(result string, n int) {
		if n > 0 {
			m.ImportListings.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("result", result),
			))
		}
	}
	record("imported", imported)
	record("skipped", skipped)
	record("failed", failed)
}
