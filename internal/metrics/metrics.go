// Package metrics defines the daemon's Prometheus instrumentation:
// connection counts, call throughput, dispatch latency, and error counts
// by taxonomy kind.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge/histogram the daemon records. All
// methods are nil-safe: calls on a nil *Metrics are no-ops, so callers
// need not special-case a disabled metrics subsystem.
type Metrics struct {
	ConnectionsAccepted *prometheus.CounterVec
	ConnectionsActive   *prometheus.GaugeVec
	CallsTotal          *prometheus.CounterVec
	CallErrorsTotal     *prometheus.CounterVec
	DispatchLatency     prometheus.Histogram
	MethodsRegistered   prometheus.Gauge
}

// New creates and registers the daemon's metrics with reg. If reg is nil,
// metrics are created but not registered, useful for tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "connections_accepted_total",
			Help:      "Total connections accepted, labeled by the role established at session-open",
		}, []string{"role"}),
		ConnectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "connections_active",
			Help:      "Currently open connections, labeled by role",
		}, []string{"role"}),
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "calls_total",
			Help:      "Total calls dispatched, labeled by wire message type",
		}, []string{"msg_type"}),
		CallErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "call_errors_total",
			Help:      "Total call errors, labeled by the unified error taxonomy kind",
		}, []string{"kind"}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "dispatch_latency_seconds",
			Help:      "Time spent invoking a local (in-process) method for a CLICALL; forwarded calls are not observed",
			Buckets:   prometheus.DefBuckets,
		}),
		MethodsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "busybus",
			Subsystem: "daemon",
			Name:      "methods_registered",
			Help:      "Number of methods currently present in the service tree",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionsAccepted,
			m.ConnectionsActive,
			m.CallsTotal,
			m.CallErrorsTotal,
			m.DispatchLatency,
			m.MethodsRegistered,
		)
	}
	return m
}

// RecordConnectionAccepted increments the accepted counter and the active
// gauge for role.
func (m *Metrics) RecordConnectionAccepted(role string) {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.WithLabelValues(role).Inc()
	m.ConnectionsActive.WithLabelValues(role).Inc()
}

// RecordConnectionClosed decrements the active gauge for role.
func (m *Metrics) RecordConnectionClosed(role string) {
	if m == nil {
		return
	}
	m.ConnectionsActive.WithLabelValues(role).Dec()
}

// RecordCall increments the total call counter for msgType (e.g. "CLICALL").
func (m *Metrics) RecordCall(msgType string) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(msgType).Inc()
}

// RecordCallError increments the error counter for the given taxonomy kind.
func (m *Metrics) RecordCallError(kind string) {
	if m == nil {
		return
	}
	m.CallErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveDispatchLatency records the duration of one local method invocation.
func (m *Metrics) ObserveDispatchLatency(seconds float64) {
	if m == nil {
		return
	}
	m.DispatchLatency.Observe(seconds)
}

// SetMethodsRegistered sets the current service-tree method count.
func (m *Metrics) SetMethodsRegistered(n int) {
	if m == nil {
		return
	}
	m.MethodsRegistered.Set(float64(n))
}
