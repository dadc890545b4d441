package metrics

import (
	"context"
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Exporter owns the meter provider and serves its readings in the Prometheus
// text format. A disabled Exporter hands out a no-op meter.
type Exporter struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prom.Registry
}

// NewExporter builds a Prometheus-backed meter provider and installs it as the
// global provider so instrumentation libraries such as otelecho share it.
func NewExporter(enabled bool) (*Exporter, error) {
	if !enabled {
		return &Exporter{meter: noop.NewMeterProvider().Meter(namespace)}, nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return &Exporter{
		meter:    provider.Meter(namespace),
		provider: provider,
		registry: registry,
	}, nil
}

// Meter returns the meter instruments are registered on.
func (e *Exporter) Meter() metric.Meter {
	return e.meter
}

// Handler serves /metrics.
func (e *Exporter) Handler() http.Handler {
	if e.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
