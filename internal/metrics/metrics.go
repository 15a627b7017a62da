// Package metrics holds the Prometheus collectors of the session router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector. Components accept it through WithMetrics options
// and default to NewNop.
type Metrics struct {
	RoutingDecisions  *prometheus.CounterVec
	BackendErrors     *prometheus.CounterVec
	CorruptPayloads   *prometheus.CounterVec
	CreateCollisions  prometheus.Counter
	KeyspaceExhausted prometheus.Counter
	Cutovers          prometheus.Counter
	ConnectionsBuilt  *prometheus.CounterVec
	BackendLatency    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RoutingDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionmux_routing_decisions_total",
			Help: "Routing decisions taken by the migration coordinator, by rule.",
		}, []string{"rule"}),
		BackendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionmux_backend_errors_total",
			Help: "Transport failures talking to a session backend.",
		}, []string{"store", "op"}),
		CorruptPayloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionmux_corrupt_payloads_total",
			Help: "Stored payloads that failed integrity verification.",
		}, []string{"store"}),
		CreateCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "sessionmux_create_collisions_total",
			Help: "Generated session keys that were already taken.",
		}),
		KeyspaceExhausted: f.NewCounter(prometheus.CounterOpts{
			Name: "sessionmux_keyspace_exhausted_total",
			Help: "Session creations that gave up after too many collisions.",
		}),
		Cutovers: f.NewCounter(prometheus.CounterOpts{
			Name: "sessionmux_cutovers_total",
			Help: "Completed migrations (current/alternative swaps).",
		}),
		ConnectionsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionmux_connections_built_total",
			Help: "Backend clients built by the connection cache, by kind.",
		}, []string{"kind"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessionmux_backend_op_duration_seconds",
			Help:    "Latency of backend operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"store", "op"}),
	}
}

// NewNop returns unregistered collectors.
func NewNop() *Metrics {
	return New(nil)
}
