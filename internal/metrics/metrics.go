// Package metrics exposes pipeline counters over Prometheus via the
// OpenTelemetry SDK. Every recording method is safe on a nil receiver,
// so callers never need to guard on whether metrics are enabled.
package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Metrics struct {
	provider *sdkmetric.MeterProvider

	documents     metric.Int64Counter
	chunks        metric.Int64Counter
	retries       metric.Int64Counter
	synthDuration metric.Float64Histogram
	trackParts    metric.Int64Counter
}

// Init wires an OTel meter provider backed by a Prometheus exporter and
// registers the pipeline instruments.
func Init(serviceName string) (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{provider: provider}

	if m.documents, err = meter.Int64Counter("doctalk_documents_total",
		metric.WithDescription("Documents processed, by final status")); err != nil {
		return nil, err
	}
	if m.chunks, err = meter.Int64Counter("doctalk_chunks_total",
		metric.WithDescription("Chunks submitted for synthesis, by result")); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter("doctalk_synthesis_retries_total",
		metric.WithDescription("Synthesis attempts beyond the first")); err != nil {
		return nil, err
	}
	if m.synthDuration, err = meter.Float64Histogram("doctalk_synthesis_duration_seconds",
		metric.WithDescription("Wall time of one document conversion"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.trackParts, err = meter.Int64Counter("doctalk_track_parts_total",
		metric.WithDescription("Output parts produced after duration splitting")); err != nil {
		return nil, err
	}

	log.Printf("[Metrics] Prometheus exporter registered for %s", serviceName)
	return m, nil
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordDocument(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.documents.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordChunk(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordRetries(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.retries.Add(ctx, int64(n))
}

func (m *Metrics) RecordSynthesisDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.synthDuration.Record(ctx, seconds)
}

func (m *Metrics) RecordParts(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.trackParts.Add(ctx, int64(n))
}

// Shutdown flushes the provider. Call on process exit.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
