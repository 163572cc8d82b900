package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Result labels used by the operation counters.
const (
	ResultSuccess = "success"
	ResultNoop    = "noop"
	ResultDenied  = "denied"
	ResultFailed  = "failed"
)

// Metrics provides Prometheus metrics for channel operations.
// A disabled Metrics accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	// Resolution metrics
	resolutions *prometheus.CounterVec
	planLength  *prometheus.HistogramVec

	// Step metrics
	stepsApplied *prometheus.CounterVec

	// Operation metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Policy metrics
	policyDenials *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Catalog metrics
	catalogReloads  *prometheus.CounterVec
	enabledChannels prometheus.Gauge
	knownChannels   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of enable/disable resolutions by outcome",
			},
			[]string{"action", "result"},
		),
		planLength: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_steps",
				Help:      "Number of steps in resolved plans",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{"action"},
		),
		stepsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plan_steps_total",
				Help:      "Total number of plan steps applied by status",
			},
			[]string{"action", "status"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of channel operations by result",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of channel operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		policyDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_denials_total",
				Help:      "Total number of operations denied by policy",
			},
			[]string{"operation"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by code",
			},
			[]string{"code"},
		),
		catalogReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Total number of catalog reloads by result",
			},
			[]string{"result"},
		),
		enabledChannels: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channels_enabled",
				Help:      "Number of currently enabled channels",
			},
		),
		knownChannels: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "channels_known",
				Help:      "Number of channels in the catalog",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.resolutions,
		m.planLength,
		m.stepsApplied,
		m.operations,
		m.operationDuration,
		m.policyDenials,
		m.errorsByClass,
		m.errorsByCode,
		m.catalogReloads,
		m.enabledChannels,
		m.knownChannels,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Enabled reports whether metrics are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordResolution records the outcome of a resolution and the size of its plan.
func (m *Metrics) RecordResolution(action, result string, steps int) {
	if !m.Enabled() {
		return
	}
	m.resolutions.WithLabelValues(action, result).Inc()
	if result == ResultSuccess || result == ResultNoop {
		m.planLength.WithLabelValues(action).Observe(float64(steps))
	}
}

// RecordStep records one applied or failed plan step.
func (m *Metrics) RecordStep(action, status string) {
	if !m.Enabled() {
		return
	}
	m.stepsApplied.WithLabelValues(action, status).Inc()
}

// RecordOperation records the result and duration of a channel operation.
func (m *Metrics) RecordOperation(operation, result string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if result == ResultDenied {
		m.policyDenials.WithLabelValues(operation).Inc()
	}
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if !m.Enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// RecordCatalogReload records a catalog reload attempt.
func (m *Metrics) RecordCatalogReload(err error) {
	if !m.Enabled() {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	m.catalogReloads.WithLabelValues(result).Inc()
}

// SetChannelCounts sets the known and enabled channel gauges.
func (m *Metrics) SetChannelCounts(known, enabled int) {
	if !m.Enabled() {
		return
	}
	m.knownChannels.Set(float64(known))
	m.enabledChannels.Set(float64(enabled))
}

// Gatherer returns the underlying registry, or nil when disabled.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if !m.Enabled() {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// WriteTextfile writes the current metrics to path in the text exposition
// format. It does nothing when metrics are disabled or path is empty.
func (m *Metrics) WriteTextfile(path string) error {
	if !m.Enabled() || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Serve exposes metrics over HTTP until ctx is cancelled.
// It returns immediately when metrics or the listen address are disabled.
func (m *Metrics) Serve(ctx context.Context, logger zerolog.Logger) error {
	if !m.Enabled() || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", m.config.ListenAddress).Str("path", path).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
