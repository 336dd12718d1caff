package authz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authorization decisions.
type Metrics struct {
	allowedTotal prometheus.Counter
	deniedTotal  *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a Metrics instance with a custom
// registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "walletgate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		allowedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "allowed_total",
			Help:      "Total number of requests allowed by the role guard",
		}),
		deniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "denied_total",
			Help:      "Total number of requests denied by the role guard",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.allowedTotal, m.deniedTotal} {
		if err := registerer.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch existing := are.ExistingCollector.(type) {
				case prometheus.Counter:
					m.allowedTotal = existing
				case *prometheus.CounterVec:
					m.deniedTotal = existing
				}
			}
		}
	}

	return m
}

// RecordAllowed records a request admitted by the guard.
func (m *Metrics) RecordAllowed() {
	m.allowedTotal.Inc()
}

// RecordDenied records a denied request by reason.
func (m *Metrics) RecordDenied(reason string) {
	m.deniedTotal.WithLabelValues(reason).Inc()
}
