package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seo_insights"

// Metrics contains the Prometheus collectors of the rate limiter.
type Metrics struct {
	checks         *prometheus.CounterVec
	increments     *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	checkDuration  prometheus.Histogram
	globalUsage    *prometheus.GaugeVec
	cleanupDeleted prometheus.Counter
	insights       *prometheus.CounterVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_checks_total",
				Help:      "Total number of availability checks performed",
			},
			[]string{"result", "reason"},
		),

		increments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_increments_total",
				Help:      "Total number of usage rows incremented",
			},
			[]string{"scope"},
		),

		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_store_errors_total",
				Help:      "Total number of failed rate limit store operations",
			},
			[]string{"operation"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_check_duration_seconds",
				Help:      "Duration of availability checks in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
		),

		globalUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_limit_global_usage",
				Help:      "Requests counted for the service in the current UTC day",
			},
			[]string{"service"},
		),

		cleanupDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_cleanup_deleted_total",
				Help:      "Total number of usage rows removed by the cleanup sweep",
			},
		),

		insights: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insights_generated_total",
				Help:      "Total number of insights returned, by source",
			},
			[]string{"source"},
		),
	}
}

// RecordCheck records the outcome of one availability check.
func (m *Metrics) RecordCheck(available bool, reason string, duration time.Duration) {
	result := "allowed"
	if !available {
		result = "blocked"
	}
	m.checks.WithLabelValues(result, reason).Inc()
	m.checkDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordIncrement(scope string) {
	m.increments.WithLabelValues(scope).Inc()
}

func (m *Metrics) RecordStoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) SetGlobalUsage(service string, total int64) {
	m.globalUsage.WithLabelValues(service).Set(float64(total))
}

func (m *Metrics) RecordCleanup(deleted int64) {
	m.cleanupDeleted.Add(float64(deleted))
}

func (m *Metrics) RecordInsight(source string) {
	m.insights.WithLabelValues(source).Inc()
}
