package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	UpstreamRequestsTotal     metric.Int64Counter
	UpstreamDurationSeconds   metric.Float64Histogram
	GenerationsTotal          metric.Int64Counter
	GenerationDurationSeconds metric.Float64Histogram
	StaleResponsesTotal       metric.Int64Counter
	ActiveSessions            metric.Int64UpDownCounter
	ExportsTotal              metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, using the global MeterProvider.
// Call it after the provider is installed so the instruments are exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("MunicipioInsights")
		var err error
		m := &AppMetrics{}

		m.UpstreamRequestsTotal, err = meter.Int64Counter(
			"ibge_requests_total",
			metric.WithDescription("Total number of requests sent to the IBGE APIs"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ibge_requests_total: %v", err)
		}

		m.UpstreamDurationSeconds, err = meter.Float64Histogram(
			"ibge_request_duration_seconds",
			metric.WithDescription("Duration of IBGE API requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ibge_request_duration_seconds: %v", err)
		}

		m.GenerationsTotal, err = meter.Int64Counter(
			"insight_generations_total",
			metric.WithDescription("Total number of generative text calls by operation and outcome"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create insight_generations_total: %v", err)
		}

		m.GenerationDurationSeconds, err = meter.Float64Histogram(
			"insight_generation_duration_seconds",
			metric.WithDescription("Duration of generative text calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create insight_generation_duration_seconds: %v", err)
		}

		m.StaleResponsesTotal, err = meter.Int64Counter(
			"selection_stale_responses_total",
			metric.WithDescription("Async responses discarded because the selection changed"),
			metric.WithUnit("{response}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create selection_stale_responses_total: %v", err)
		}

		m.ActiveSessions, err = meter.Int64UpDownCounter(
			"selection_active_sessions",
			metric.WithDescription("Number of live selection sessions"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create selection_active_sessions: %v", err)
		}

		m.ExportsTotal, err = meter.Int64Counter(
			"exports_total",
			metric.WithDescription("Total number of generated export files by format"),
			metric.WithUnit("{file}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create exports_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, initialising them against whatever provider is
// installed (the no-op provider in tests).
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
