// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "userreg"

// DefaultBuckets provides histogram buckets in seconds for outbound lookups.
var DefaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registrations   *prometheus.CounterVec
	authentications *prometheus.CounterVec
	breachChecks    *prometheus.CounterVec
	breachDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		breachChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breach_checks_total",
			Help:      "Password breach lookups by result.",
		}, []string{"result"}),
		breachDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "breach_check_duration_seconds",
			Help:      "Latency of password breach lookups.",
			Buckets:   DefaultBuckets,
		}),
	}
	reg.MustRegister(m.registrations, m.authentications, m.breachChecks, m.breachDuration)
	return m
}

// Registration counts one registration attempt.
func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// Authentication counts one authentication attempt.
func (m *Metrics) Authentication(outcome string) {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues(outcome).Inc()
}

// BreachCheck records a breach lookup result ("leaked", "clean" or "error")
// and how long it took.
func (m *Metrics) BreachCheck(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.breachChecks.WithLabelValues(result).Inc()
	m.breachDuration.Observe(took.Seconds())
}
