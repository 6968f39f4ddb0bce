// Copyright 2025 Certen Protocol
//
// Package metrics exposes the Prometheus counters and gauges the
// reasoning pipeline's hot paths report through: cache hit rate, routing
// tier distribution, and task-state transition counts. The teacher's
// go.mod carries github.com/prometheus/client_golang as a direct
// dependency with no retrieved source file importing it (its consumer
// lived in the out-of-scope HTTP/metrics server); this package gives it
// a concrete, exercised home.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the metrics collectors so callers can register them
// once (e.g. against prometheus.DefaultRegisterer) and pass the struct
// around to the components that observe them.
type Registry struct {
	CacheLookups     *prometheus.CounterVec
	RoutingDecisions *prometheus.CounterVec
	TaskTransitions  *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec
	ProofCacheSize   prometheus.Gauge
}

// NewRegistry constructs a Registry with unregistered collectors. Call
// MustRegister to attach it to a prometheus.Registerer.
func NewRegistry() *Registry {
	return &Registry{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coordinator",
			Subsystem: "semcache",
			Name:      "lookups_total",
			Help:      "Semantic cache lookups, partitioned by outcome (hit_local, hit_distributed, hit_similarity, miss).",
		}, []string{"outcome"}),
		RoutingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coordinator",
			Subsystem: "reasoning",
			Name:      "routing_decisions_total",
			Help:      "Reasoning requests routed, partitioned by workflow and selected model tier.",
		}, []string{"workflow", "tier"}),
		TaskTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coordinator",
			Subsystem: "tasks",
			Name:      "state_transitions_total",
			Help:      "Task state-machine transitions, partitioned by from/to state.",
		}, []string{"from", "to"}),
		InferenceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coordinator",
			Subsystem: "reasoning",
			Name:      "inference_latency_ms",
			Help:      "Inference call latency in milliseconds, partitioned by model tier.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 5000, 30000, 120000},
		}, []string{"tier"}),
		ProofCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coordinator",
			Subsystem: "zkproof",
			Name:      "proof_cache_entries",
			Help:      "Current number of entries held in the bounded ZK proof cache.",
		}),
	}
}

// MustRegister attaches every collector in r to reg, panicking on a
// duplicate-registration error exactly as prometheus.MustRegister does.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(r.CacheLookups, r.RoutingDecisions, r.TaskTransitions, r.InferenceLatency, r.ProofCacheSize)
}

// ObserveCacheLookup records a semantic cache lookup outcome.
func (r *Registry) ObserveCacheLookup(outcome string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveRoutingDecision records a tier selection for a workflow class.
func (r *Registry) ObserveRoutingDecision(workflow, tier string) {
	if r == nil {
		return
	}
	r.RoutingDecisions.WithLabelValues(workflow, tier).Inc()
}

// ObserveTaskTransition records a task-state-machine transition.
func (r *Registry) ObserveTaskTransition(from, to string) {
	if r == nil {
		return
	}
	r.TaskTransitions.WithLabelValues(from, to).Inc()
}

// ObserveInferenceLatency records an inference call's latency for a tier.
func (r *Registry) ObserveInferenceLatency(tier string, latencyMs float64) {
	if r == nil {
		return
	}
	r.InferenceLatency.WithLabelValues(tier).Observe(latencyMs)
}

// SetProofCacheSize updates the current proof-cache occupancy gauge.
func (r *Registry) SetProofCacheSize(n int) {
	if r == nil {
		return
	}
	r.ProofCacheSize.Set(float64(n))
}
