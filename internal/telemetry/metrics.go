package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the optimization metrics. A disabled Metrics is a no-op.
type Metrics struct {
	config MetricsConfig

	evaluations    prometheus.Counter
	value          prometheus.Gauge
	best           prometheus.Gauge
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	activeRuns     prometheus.Gauge
	unitarityDrift prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "qpulse"
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of objective evaluations",
		}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objective_value",
			Help:      "Objective value at the last reported evaluation",
		}),
		best: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objective_best",
			Help:      "Best objective value of the current run",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of finished optimization runs",
		}, []string{"converged"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of optimization runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of optimization runs in progress",
		}),
		unitarityDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unitarity_error",
			Help:      "Frobenius distance of the last final propagator from unitarity",
		}),
	}

	registry.MustRegister(
		m.evaluations,
		m.value,
		m.best,
		m.runs,
		m.runDuration,
		m.activeRuns,
		m.unitarityDrift,
	)
	return m
}

func (m *Metrics) Enabled() bool { return m.registry != nil }

// Registry returns the underlying registry, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RunStarted marks a run as active and resets the best value.
func (m *Metrics) RunStarted() {
	if !m.Enabled() {
		return
	}
	m.activeRuns.Inc()
	m.best.Set(0)
}

// ObserveProgress records evaluations since the last call and the values.
func (m *Metrics) ObserveProgress(newEvaluations int, value, best float64) {
	if !m.Enabled() {
		return
	}
	m.evaluations.Add(float64(newEvaluations))
	m.value.Set(value)
	m.best.Set(best)
}

// RunFinished records a finished run.
func (m *Metrics) RunFinished(converged bool, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.activeRuns.Dec()
	m.runs.WithLabelValues(strconv.FormatBool(converged)).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// SetUnitarity records the unitarity error of a final propagator.
func (m *Metrics) SetUnitarity(err float64) {
	if !m.Enabled() {
		return
	}
	m.unitarityDrift.Set(err)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
