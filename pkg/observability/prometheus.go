package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewPrometheusMeterProvider creates a MeterProvider whose instruments are
// exported to a private Prometheus registry, together with the [http.Handler]
// serving that registry. Each call uses an independent registry.
func NewPrometheusMeterProvider(res *resource.Resource) (*metric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []metric.Option{metric.WithReader(exporter)}
	if res != nil {
		opts = append(opts, metric.WithResource(res))
	}

	mp := metric.NewMeterProvider(opts...)

	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
