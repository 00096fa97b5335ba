// Package metrics exposes Prometheus instrumentation for the call bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. New registers them with the given
// registerer, so tests can use a private registry.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionsClosed  prometheus.Counter
	ActiveSessions  prometheus.Gauge

	FramesToAI     prometheus.Counter
	FramesToCaller prometheus.Counter
	FramesDropped  prometheus.Counter

	ParseErrors       *prometheus.CounterVec
	AIConnectFailures prometheus.Counter

	CallsPlaced   prometheus.Counter
	CallsRejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_started_total",
			Help: "Total number of call sessions accepted",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_closed_total",
			Help: "Total number of call sessions torn down",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_sessions",
			Help: "Current number of live call sessions",
		}),
		FramesToAI: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_to_ai_total",
			Help: "Audio frames forwarded from the call to the AI service",
		}),
		FramesToCaller: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_to_caller_total",
			Help: "Audio frames forwarded from the AI service to the call",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_dropped_total",
			Help: "Audio frames dropped because the AI connection was not open",
		}),
		ParseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_parse_errors_total",
			Help: "Malformed messages dropped, by side",
		}, []string{"side"}),
		AIConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_ai_connect_failures_total",
			Help: "Failed dials to the speech AI service",
		}),
		CallsPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_calls_placed_total",
			Help: "Outbound calls accepted by the telephony provider",
		}),
		CallsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_calls_rejected_total",
			Help: "Outbound call attempts rejected by the eligibility gate",
		}),
	}
}
