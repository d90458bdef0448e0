package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusMetrics implements Recorder on an OpenTelemetry meter backed by
// a Prometheus exporter. The zero value is a safe no-op.
type PrometheusMetrics struct {
	tasksCreated    metric.Int64Counter
	backendCalls    metric.Int64Counter
	backendDuration metric.Float64Histogram
	tasksTerminal   metric.Int64Counter
}

// InitMetrics builds the meter provider and instruments. The returned
// recorder serves scrapes through Handler on the default Prometheus
// registry.
func InitMetrics(ctx context.Context) (*PrometheusMetrics, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("quoter")

	tasksCreated, err := meter.Int64Counter(
		"quoter_tasks_created_total",
		metric.WithDescription("Total tasks created"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks counter: %w", err)
	}

	backendCalls, err := meter.Int64Counter(
		"quoter_backend_calls_total",
		metric.WithDescription("Total generation backend attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend calls counter: %w", err)
	}

	backendDuration, err := meter.Float64Histogram(
		"quoter_backend_call_duration_seconds",
		metric.WithDescription("Generation backend attempt latency in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend duration histogram: %w", err)
	}

	tasksTerminal, err := meter.Int64Counter(
		"quoter_tasks_terminal_total",
		metric.WithDescription("Total tasks reaching a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal counter: %w", err)
	}

	return &PrometheusMetrics{
		tasksCreated:    tasksCreated,
		backendCalls:    backendCalls,
		backendDuration: backendDuration,
		tasksTerminal:   tasksTerminal,
	}, nil
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *PrometheusMetrics) RecordTaskCreated(ctx context.Context, intent string) {
	if m == nil || m.tasksCreated == nil {
		return
	}
	m.tasksCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", intent)))
}

func (m *PrometheusMetrics) RecordBackendCall(ctx context.Context, attempt int, latency time.Duration, outcome string) {
	if m == nil || m.backendCalls == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("attempt", attempt),
	)
	m.backendCalls.Add(ctx, 1, attrs)
	m.backendDuration.Record(ctx, latency.Seconds(), attrs)
}

func (m *PrometheusMetrics) RecordTaskTerminal(ctx context.Context, state string) {
	if m == nil || m.tasksTerminal == nil {
		return
	}
	m.tasksTerminal.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
