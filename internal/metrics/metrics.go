// Package metrics exposes Prometheus metrics for the poller and the local
// dashboard API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "signaldesk"

// Registry holds all Prometheus metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Poller metrics
	pollCycles      *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	fetchFailures   *prometheus.CounterVec
	newSignals      *prometheus.CounterVec
	heldSignals     *prometheus.GaugeVec
	executions      *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	refreshDropped  prometheus.Counter
	marketOpenGauge prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_cycles_total",
				Help:      "Poll cycles completed, by outcome",
			},
			[]string{"outcome"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_duration_seconds",
				Help:      "Poll cycle duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Backend fetch failures, by resource",
			},
			[]string{"resource"},
		),
		newSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "new_signals_total",
				Help:      "Newly observed signals, by module and action",
			},
			[]string{"module", "action"},
		),
		heldSignals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "held_signals",
				Help:      "Signals currently held, by execution state",
			},
			[]string{"state"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Execution requests, by trigger and status",
			},
			[]string{"trigger", "status"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Signal notifications sent, by notifier and status",
			},
			[]string{"notifier", "status"},
		),
		refreshDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_dropped_total",
				Help:      "Manual refreshes dropped because a cycle was in flight",
			},
		),
		marketOpenGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "market_open",
				Help:      "1 when the backend reports the market open",
			},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal, r.httpRequestDuration, r.httpRequestsInFlight,
		r.pollCycles, r.pollDuration, r.fetchFailures, r.newSignals, r.heldSignals,
		r.executions, r.notifications, r.refreshDropped, r.marketOpenGauge,
	)
	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r != nil {
		r.httpRequestsInFlight.Inc()
	}
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r != nil {
		r.httpRequestsInFlight.Dec()
	}
}

// RecordPollCycle records a finished cycle. outcome is "ok" or "error".
func (r *Registry) RecordPollCycle(outcome string, duration float64) {
	if r == nil {
		return
	}
	r.pollCycles.WithLabelValues(outcome).Inc()
	r.pollDuration.Observe(duration)
}

// RecordFetchFailure records a failed backend fetch ("market" or "signals").
func (r *Registry) RecordFetchFailure(resource string) {
	if r != nil {
		r.fetchFailures.WithLabelValues(resource).Inc()
	}
}

// RecordNewSignal records a newly observed signal.
func (r *Registry) RecordNewSignal(module, action string) {
	if r != nil {
		r.newSignals.WithLabelValues(module, action).Inc()
	}
}

// SetHeldSignals sets the held signal counts.
func (r *Registry) SetHeldSignals(nonExecuted, executed int) {
	if r == nil {
		return
	}
	r.heldSignals.WithLabelValues("non_executed").Set(float64(nonExecuted))
	r.heldSignals.WithLabelValues("executed").Set(float64(executed))
}

// RecordExecution records an execution attempt. trigger is "manual" or "auto".
func (r *Registry) RecordExecution(trigger, status string) {
	if r != nil {
		r.executions.WithLabelValues(trigger, status).Inc()
	}
}

// RecordNotification records a notifier delivery.
func (r *Registry) RecordNotification(notifier, status string) {
	if r != nil {
		r.notifications.WithLabelValues(notifier, status).Inc()
	}
}

// RecordRefreshDropped records a manual refresh dropped while in flight.
func (r *Registry) RecordRefreshDropped() {
	if r != nil {
		r.refreshDropped.Inc()
	}
}

// SetMarketOpen sets the market status gauge.
func (r *Registry) SetMarketOpen(open bool) {
	if r == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	r.marketOpenGauge.Set(v)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
