// Package metrics owns the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking_gateway"

// Metrics is registered on its own registry so tests and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Routing decisions taken by the dispatcher.",
		}, []string{"binding", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency as seen by the gateway.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"binding", "code"}),
	}
	reg.MustRegister(
		m.dispatches,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Dispatched implements dispatch.Observer.
func (m *Metrics) Dispatched(binding string, outcome dispatch.Outcome) {
	m.dispatches.WithLabelValues(bindingLabel(binding, outcome), string(outcome)).Inc()
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(binding string, code int, d time.Duration) {
	m.duration.WithLabelValues(binding, strconv.Itoa(code)).Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// bindingLabel keeps label cardinality bounded: health and misses get fixed names.
func bindingLabel(binding string, outcome dispatch.Outcome) string {
	switch outcome {
	case dispatch.OutcomeHealth:
		return "health"
	case dispatch.OutcomeNotFound:
		return "none"
	case dispatch.OutcomeRedirect:
		return "redirect"
	}
	if binding == "" {
		return "unknown"
	}
	return binding
}
