package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes used as metric labels.
const (
	outcomeSuccess = "success"
	outcomeDenied  = "denied"
	outcomeNetwork = "network"
)

// Metrics counts session activity.
type Metrics struct {
	// RefreshCalls counts refresh round trips by outcome.
	RefreshCalls *prometheus.CounterVec
	// RefreshWaiters counts callers that attached to an in-flight refresh
	// instead of starting one.
	RefreshWaiters prometheus.Counter
	// Retries counts requests replayed after a 401.
	Retries prometheus.Counter
	// GateDecisions counts guard decisions by result.
	GateDecisions *prometheus.CounterVec
}

// NewMetrics creates the session metrics and registers them on reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admin",
			Subsystem: "session",
			Name:      "refresh_calls_total",
			Help:      "Refresh endpoint round trips by outcome.",
		}, []string{"outcome"}),
		RefreshWaiters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "admin",
			Subsystem: "session",
			Name:      "refresh_waiters_total",
			Help:      "Refresh callers served by an already in-flight refresh.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "admin",
			Subsystem: "session",
			Name:      "request_retries_total",
			Help:      "Requests replayed once after a 401.",
		}),
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admin",
			Subsystem: "session",
			Name:      "gate_decisions_total",
			Help:      "Route guard decisions by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.RefreshCalls, m.RefreshWaiters, m.Retries, m.GateDecisions)
	}
	return m
}
