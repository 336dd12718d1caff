package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authentication operations.
type Metrics struct {
	successTotal prometheus.Counter
	failureTotal *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics creates a Metrics instance registered with the default
// registerer so it is exposed on /metrics.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a Metrics instance with a custom
// registerer. Useful in tests where a private registry is preferred.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "walletgate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		successTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "success_total",
			Help:      "Total number of successful authentications",
		}),
		failureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failure_total",
			Help:      "Total number of failed authentications",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "duration_seconds",
			Help:      "Credential verification duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		}),
	}

	// Ignore AlreadyRegistered so multiple authenticators can share
	// the default registry.
	for _, c := range []prometheus.Collector{m.successTotal, m.failureTotal, m.duration} {
		if err := registerer.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch existing := are.ExistingCollector.(type) {
				case prometheus.Counter:
					if c == m.successTotal {
						m.successTotal = existing
					}
				case *prometheus.CounterVec:
					m.failureTotal = existing
				case prometheus.Histogram:
					if c == m.duration {
						m.duration = existing
					}
				}
			}
		}
	}

	return m
}

// RecordSuccess records a successful authentication.
func (m *Metrics) RecordSuccess(elapsed time.Duration) {
	m.successTotal.Inc()
	m.duration.Observe(elapsed.Seconds())
}

// RecordFailure records a failed authentication by reason.
func (m *Metrics) RecordFailure(reason string) {
	m.failureTotal.WithLabelValues(reason).Inc()
}
