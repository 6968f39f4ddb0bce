// Copyright 2025 Certen Protocol

package zkproof

import (
	"sync"

	"github.com/intentmesh/coordinator/pkg/metrics"
)

// DefaultCacheSize is the default proof-cache capacity (§4.5.3).
const DefaultCacheSize = 1000

// ProofCache holds generated proofs keyed by task id, bounded by capacity.
// Eviction is oldest-inserted-first: the spec leaves the eviction policy
// unspecified beyond "evict an entry", so FIFO is the simplest contract
// callers can reason about.
type ProofCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]*Proof
	order    []uint64
	metrics  *metrics.Registry
}

func NewProofCache(capacity int) *ProofCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &ProofCache{
		capacity: capacity,
		entries:  make(map[uint64]*Proof),
	}
}

// SetMetrics attaches a metrics registry the cache's occupancy gauge is
// reported against. Optional; nil (the default) makes observations a no-op.
func (c *ProofCache) SetMetrics(m *metrics.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Put stores a proof, evicting the oldest entry if the cache is full and
// taskID is not already present.
func (c *ProofCache) Put(taskID uint64, proof *Proof) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[taskID]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	if _, exists := c.entries[taskID]; !exists {
		c.order = append(c.order, taskID)
	}
	c.entries[taskID] = proof
	c.metrics.SetProofCacheSize(len(c.entries))
}

// Get returns the cached proof for a task, if any.
func (c *ProofCache) Get(taskID uint64) (*Proof, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[taskID]
	return p, ok
}

func (c *ProofCache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// Len reports the number of cached proofs.
func (c *ProofCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
