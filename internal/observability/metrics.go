// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// JobMetrics holds the instruments the daemon records per job lifecycle event.
type JobMetrics struct {
	Submitted metric.Int64Counter
	Completed metric.Int64Counter
}

// NewJobMetrics registers the job counters plus an observable inbox-depth
// gauge. depth is polled only when the metrics endpoint is scraped.
func NewJobMetrics(depth func(context.Context) (int64, error)) (*JobMetrics, error) {
	meter := otel.Meter("taskarena")

	submitted, err := meter.Int64Counter("taskarena.jobs.submitted",
		metric.WithDescription("Jobs accepted by the intake endpoint"))
	if err != nil {
		return nil, fmt.Errorf("failed to register submitted counter: %w", err)
	}

	completed, err := meter.Int64Counter("taskarena.jobs.completed",
		metric.WithDescription("Jobs reaching a terminal state"))
	if err != nil {
		return nil, fmt.Errorf("failed to register completed counter: %w", err)
	}

	_, err = meter.Int64ObservableGauge("taskarena.queue.depth",
		metric.WithDescription("Descriptors waiting in the inbox"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			n, err := depth(ctx)
			if err != nil {
				// A scrape must not fail because the inbox was unreadable.
				return nil
			}
			obs.Observe(n)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register queue depth gauge: %w", err)
	}

	return &JobMetrics{Submitted: submitted, Completed: completed}, nil
}

// RecordCompleted counts one terminal job, labelled by outcome.
func (m *JobMetrics) RecordCompleted(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.Completed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// RecordSubmitted counts one accepted submission.
func (m *JobMetrics) RecordSubmitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.Submitted.Add(ctx, 1)
}
