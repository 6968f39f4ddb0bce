// Copyright 2025 Certen Protocol

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRegistry_ObservationsIncrementCollectors(t *testing.T) {
	r := NewRegistry()
	reg := prometheus.NewRegistry()
	r.MustRegister(reg)

	r.ObserveCacheLookup("hit_local")
	r.ObserveRoutingDecision("Standard", "13B")
	r.ObserveTaskTransition("Pending", "Reasoning")
	r.ObserveInferenceLatency("13B", 42.0)
	r.SetProofCacheSize(7)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			counts[fam.GetName()] += metricValue(m)
		}
	}
	if counts["coordinator_semcache_lookups_total"] != 1 {
		t.Fatalf("expected one cache lookup observation, got %v", counts)
	}
	if counts["coordinator_reasoning_routing_decisions_total"] != 1 {
		t.Fatalf("expected one routing decision observation, got %v", counts)
	}
	if counts["coordinator_tasks_state_transitions_total"] != 1 {
		t.Fatalf("expected one task transition observation, got %v", counts)
	}
	if counts["coordinator_zkproof_proof_cache_entries"] != 7 {
		t.Fatalf("expected proof cache gauge at 7, got %v", counts)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	// None of these should panic on a nil registry.
	r.ObserveCacheLookup("hit_local")
	r.ObserveRoutingDecision("Standard", "13B")
	r.ObserveTaskTransition("Pending", "Reasoning")
	r.ObserveInferenceLatency("13B", 1.0)
	r.SetProofCacheSize(1)
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		return 0
	}
}
