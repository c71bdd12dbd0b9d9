package tracer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
)

// InitTracingAndMetrics installs the global tracer and meter providers and,
// when port is set, serves Prometheus metrics on :port/metrics.
// The returned function flushes providers and stops the metrics server.
func InitTracingAndMetrics(serviceName, port string, logger *slog.Logger) (func(context.Context) error, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	tp := trace.NewTracerProvider(trace.WithResource(res))
	otel.SetTracerProvider(tp)

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(mp)

	metrics.InitAppMetrics()

	var srv *http.Server
	if port != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Starting metrics server", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", slog.Any("error", err))
			}
		}()
	}

	return func(ctx context.Context) error {
		var errs []error
		if srv != nil {
			errs = append(errs, srv.Shutdown(ctx))
		}
		errs = append(errs, tp.Shutdown(ctx), mp.Shutdown(ctx))
		return errors.Join(errs...)
	}, nil
}
