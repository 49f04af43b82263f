package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lead_console"

// ConsoleMetrics exposes counters and histograms for leads service calls and
// console lifecycles. All methods are safe on a nil receiver.
type ConsoleMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reloadsTotal    *prometheus.CounterVec
	submitsTotal    *prometheus.CounterVec
}

// New registers the console metrics on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *ConsoleMetrics {
	m := &ConsoleMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads_api",
			Name:      "requests_total",
			Help:      "Total requests sent to the leads service",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leads_api",
			Name:      "request_duration_seconds",
			Help:      "Latency of leads service requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "reloads_total",
			Help:      "Finished lead reloads by outcome",
		}, []string{"outcome"}),
		submitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "submits_total",
			Help:      "Finished edit submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.reloadsTotal, m.submitsTotal)
	return m
}

// ObserveRequest records one leads service call.
func (m *ConsoleMetrics) ObserveRequest(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ReloadFinished records a reload outcome.
func (m *ConsoleMetrics) ReloadFinished(outcome string) {
	if m == nil {
		return
	}
	m.reloadsTotal.WithLabelValues(outcome).Inc()
}

// SubmitFinished records a submit outcome.
func (m *ConsoleMetrics) SubmitFinished(outcome string) {
	if m == nil {
		return
	}
	m.submitsTotal.WithLabelValues(outcome).Inc()
}
