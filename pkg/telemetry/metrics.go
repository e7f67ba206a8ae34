package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for hostprep.
type Metrics struct {
	config MetricsConfig

	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	packagesProcessed *prometheus.CounterVec
	installAttempts   prometheus.Counter
	attemptDuration   prometheus.Histogram

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a new metrics collector with the given
// configuration. When disabled, every method is a no-op.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of provisioning runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of provisioning runs in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
			},
			[]string{"status"},
		),
		packagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packages_processed_total",
				Help:      "Total number of packages processed, by outcome",
			},
			[]string{"outcome"},
		),
		installAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "install_attempts_total",
				Help:      "Total number of package install invocations",
			},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "install_attempt_duration_seconds",
				Help:      "Duration of individual install invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.runsCompleted,
		m.runDuration,
		m.packagesProcessed,
		m.installAttempts,
		m.attemptDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// RecordRun records a finished run with its status and duration.
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordPackage records one terminal package outcome.
func (m *Metrics) RecordPackage(outcome string) {
	if m.registry == nil {
		return
	}
	m.packagesProcessed.WithLabelValues(outcome).Inc()
}

// RecordAttempt records one install invocation.
func (m *Metrics) RecordAttempt(duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.installAttempts.Inc()
	m.attemptDuration.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on the configured listen address for the
// duration of the run. It returns immediately; the server runs until
// Shutdown.
func (m *Metrics) Serve() error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = m.server.ListenAndServe()
	}()
	return nil
}

// Shutdown stops the metrics listener, if one was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
