// Package observability owns the prometheus collectors and the
// OpenTelemetry tracer provider of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector.  A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	fanoutSteps        *prometheus.CounterVec
	fanoutPlans        *prometheus.CounterVec
	fanoutPlanDuration *prometheus.HistogramVec
	partialFailures    *prometheus.CounterVec
	compensations      *prometheus.CounterVec
	ratingUpdates      *prometheus.CounterVec
	lockWait           prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
	publishFailures    *prometheus.CounterVec
}

// NewMetrics registers every collector on a private registry together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fanoutSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_steps_total",
			Help: "Fan-out write steps by target entity, operation and status.",
		}, []string{"target", "op", "status"}),
		fanoutPlans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_plans_total",
			Help: "Fan-out plans by event, commit strategy and status.",
		}, []string{"event", "strategy", "status"}),
		fanoutPlanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fanout_plan_duration_seconds",
			Help:    "Wall time of fan-out plans.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_partial_failures_total",
			Help: "Plans that failed after at least one step committed.",
		}, []string{"event"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_compensations_total",
			Help: "Saga compensation runs by outcome.",
		}, []string{"status"}),
		ratingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rating_updates_total",
			Help: "Aggregate rating updates by kind (add, replace, remove).",
		}, []string{"kind"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rating_lock_wait_seconds",
			Help:    "Time spent waiting for an aggregate lock.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Broker publish failures by sink.",
		}, []string{"sink"}),
	}
	reg.MustRegister(
		m.fanoutSteps, m.fanoutPlans, m.fanoutPlanDuration, m.partialFailures,
		m.compensations, m.ratingUpdates, m.lockWait, m.httpRequests,
		m.httpLatency, m.publishFailures,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFanoutStep(target, op, status string) {
	if m == nil {
		return
	}
	m.fanoutSteps.WithLabelValues(target, op, status).Inc()
}

func (m *Metrics) ObserveFanoutPlan(event, strategy, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.fanoutPlans.WithLabelValues(event, strategy, status).Inc()
	m.fanoutPlanDuration.WithLabelValues(event).Observe(dur.Seconds())
}

func (m *Metrics) IncPartialFailure(event string) {
	if m == nil {
		return
	}
	m.partialFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) IncCompensation(status string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRatingUpdate(kind string) {
	if m == nil {
		return
	}
	m.ratingUpdates.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveLockWait(dur time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(dur.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) IncPublishFailure(sink string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(sink).Inc()
}
