// Copyright 2025 Certen Protocol
//
// Package reasoning implements the inference router and runtime (C4):
// a workflow/complexity routing matrix over model tiers, availability
// fallback, the inference contract, and a prompt optimizer. The tier
// registry is a fresh implementation, grounded only on the map-backed
// registry shape (sync.RWMutex, default-tier fallback) the teacher's
// strategy registry showed before it was retired.
package reasoning

import "sync"

// ModelTier identifies a model size/location class.
type ModelTier string

const (
	Tier7B  ModelTier = "7B"
	Tier13B ModelTier = "13B"
	Tier70B ModelTier = "70B"
	TierAPI ModelTier = "API"
)

// Workflow identifies a request's precision/cost class.
type Workflow string

const (
	WorkflowExpressLocal    Workflow = "ExpressLocal"
	WorkflowStandard        Workflow = "Standard"
	WorkflowHighPrecision   Workflow = "HighPrecision"
	WorkflowMissionCritical Workflow = "MissionCritical"
)

// fallbackOrder is tried in sequence when a preferred tier is unavailable.
var fallbackOrder = []ModelTier{Tier7B, Tier13B, Tier70B, TierAPI}

// routingMatrix[workflow][complexityBucket] selects the preferred tier.
var routingMatrix = map[Workflow][4]ModelTier{
	WorkflowExpressLocal:    {Tier7B, Tier7B, Tier13B, Tier13B},
	WorkflowStandard:        {Tier7B, Tier13B, Tier13B, Tier70B},
	WorkflowHighPrecision:   {Tier13B, Tier70B, Tier70B, TierAPI},
	WorkflowMissionCritical: {TierAPI, TierAPI, TierAPI, TierAPI},
}

// ComplexityBucket buckets a 0-10000 complexity score into 0..3.
func ComplexityBucket(complexity int) int {
	b := complexity / 2500
	if b < 0 {
		return 0
	}
	if b > 3 {
		return 3
	}
	return b
}

// PreferredTier returns the routing matrix's choice for (workflow, complexity).
// Unknown workflows fall back to Standard.
func PreferredTier(workflow Workflow, complexity int) ModelTier {
	row, ok := routingMatrix[workflow]
	if !ok {
		row = routingMatrix[WorkflowStandard]
	}
	return row[ComplexityBucket(complexity)]
}

// Registry tracks which tiers are currently available for routing.
type Registry struct {
	mu        sync.RWMutex
	available map[ModelTier]bool
}

// NewRegistry returns a Registry with every tier marked available.
func NewRegistry() *Registry {
	return &Registry{
		available: map[ModelTier]bool{
			Tier7B:  true,
			Tier13B: true,
			Tier70B: true,
			TierAPI: true,
		},
	}
}

// SetAvailable marks a tier available or unavailable.
func (r *Registry) SetAvailable(tier ModelTier, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available[tier] = available
}

// IsAvailable reports whether a tier is currently routable.
func (r *Registry) IsAvailable(tier ModelTier) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[tier]
}

// SelectTier resolves the preferred tier for (workflow, complexity),
// falling back through {7B, 13B, 70B, API} (skipping the preferred tier)
// if it is unavailable. If nothing is available, returns the preferred
// tier anyway so callers can surface the failure themselves.
func (r *Registry) SelectTier(workflow Workflow, complexity int) ModelTier {
	preferred := PreferredTier(workflow, complexity)
	if r.IsAvailable(preferred) {
		return preferred
	}
	for _, tier := range fallbackOrder {
		if tier == preferred {
			continue
		}
		if r.IsAvailable(tier) {
			return tier
		}
	}
	return preferred
}
