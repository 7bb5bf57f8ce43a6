package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig holds configuration for admission metrics collection.
type MetricsConfig struct {
	// Namespace for Prometheus metrics
	Namespace string
	// Subsystem for Prometheus metrics
	Subsystem string
	// Enabled determines if metrics collection is active
	Enabled bool
	// Registry is the Prometheus registry to use (optional, uses default if nil)
	Registry prometheus.Registerer
}

// DefaultMetricsConfig returns default metrics configuration.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "admission",
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PrometheusMetrics holds all Prometheus metrics for admission decisions.
type PrometheusMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	checkDuration    *prometheus.HistogramVec
	fallbackDefaults prometheus.Counter
}

// MetricsExporter manages Prometheus metrics for admission decisions.
type MetricsExporter struct {
	config   *MetricsConfig
	metrics  *PrometheusMetrics
	registry prometheus.Registerer
	enabled  bool
}

// NewMetricsExporter creates a new Prometheus metrics exporter.
func NewMetricsExporter(config *MetricsConfig) *MetricsExporter {
	if config == nil {
		config = DefaultMetricsConfig()
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	me := &MetricsExporter{
		config:   config,
		registry: registry,
		enabled:  config.Enabled,
	}

	if me.enabled {
		me.initializeMetrics()
	}

	return me
}

// NopMetricsExporter returns an exporter that records nothing. Used when no
// exporter is configured.
func NopMetricsExporter() *MetricsExporter {
	return NewMetricsExporter(&MetricsConfig{Enabled: false})
}

// initializeMetrics creates all Prometheus metrics.
func (me *MetricsExporter) initializeMetrics() {
	me.metrics = &PrometheusMetrics{
		decisionsTotal: promauto.With(me.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: me.config.Namespace,
				Subsystem: me.config.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of admission decisions by identity namespace and outcome",
			},
			[]string{"namespace", "decision"},
		),
		rejectionsTotal: promauto.With(me.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: me.config.Namespace,
				Subsystem: me.config.Subsystem,
				Name:      "rejections_total",
				Help:      "Total number of rejected requests by identity namespace and limiting window",
			},
			[]string{"namespace", "window"},
		),
		checkDuration: promauto.With(me.registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: me.config.Namespace,
				Subsystem: me.config.Subsystem,
				Name:      "check_duration_seconds",
				Help:      "Duration of admission checks in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"namespace"},
		),
		fallbackDefaults: promauto.With(me.registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: me.config.Namespace,
				Subsystem: me.config.Subsystem,
				Name:      "default_policy_total",
				Help:      "Total number of checks that fell back to the default policy",
			},
		),
	}
}

// RecordDecision counts one admission decision and its check latency.
func (me *MetricsExporter) RecordDecision(namespace string, allowed bool, duration time.Duration) {
	if !me.enabled || me.metrics == nil {
		return
	}

	decision := "allowed"
	if !allowed {
		decision = "denied"
	}

	me.metrics.decisionsTotal.WithLabelValues(namespace, decision).Inc()
	me.metrics.checkDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

// RecordRejection counts one denial against the window that produced it.
func (me *MetricsExporter) RecordRejection(namespace, window string) {
	if !me.enabled || me.metrics == nil {
		return
	}

	me.metrics.rejectionsTotal.WithLabelValues(namespace, window).Inc()
}

// RecordDefaultPolicy counts one fallback to the default policy.
func (me *MetricsExporter) RecordDefaultPolicy() {
	if !me.enabled || me.metrics == nil {
		return
	}

	me.metrics.fallbackDefaults.Inc()
}
