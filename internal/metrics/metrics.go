// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tableside_waiter_sessions_active",
		Help: "Number of waiter connection sessions currently subscribed",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tableside_bus_subscriptions_active",
		Help: "Number of event bus subscriptions held by waiter sessions",
	})

	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableside_relay_events_received_total",
		Help: "Bus events delivered to waiter sessions by topic",
	}, []string{"topic"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableside_relay_events_dropped_total",
		Help: "Bus events dropped by waiter sessions by topic and reason",
	}, []string{"topic", "reason"})

	EmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableside_waiter_emissions_total",
		Help: "Outbound events emitted to waiter connections by event name",
	}, []string{"event"})

	ReleaseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableside_relay_release_failures_total",
		Help: "Subscription releases that failed during session teardown",
	})

	CapabilityRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableside_waiter_requests_total",
		Help: "Capability requests handled by name and outcome",
	}, []string{"request", "outcome"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableside_http_rate_limited_total",
		Help: "HTTP requests rejected by the per-client rate limiter",
	})
)

// IncEventDropped records a bus event that a session chose not to forward.
func IncEventDropped(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	EventsDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// IncCapabilityRequest records the outcome ("ok" or "error") of a request.
func IncCapabilityRequest(request string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	CapabilityRequestsTotal.WithLabelValues(request, outcome).Inc()
}
