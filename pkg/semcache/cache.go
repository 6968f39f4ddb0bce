// Copyright 2025 Certen Protocol
//
// Package semcache implements the semantic cache (C3): category-aware TTL,
// an exact-hash local LRU layer backed by an optional distributed layer,
// and Jaccard-similarity fallback lookup. Local layer: single writer,
// multiple readers; eviction is bounded to 10% of capacity per pass,
// matching §5's shared-resource policy.
package semcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intentmesh/coordinator/pkg/metrics"
)

// Category drives the TTL assigned to an entry.
type Category string

const (
	CategoryFactual      Category = "Factual"
	CategoryTechnical    Category = "Technical"
	CategoryGeneralQA    Category = "GeneralQA"
	CategoryPriceData    Category = "PriceData"
	CategoryTimeSensitive Category = "TimeSensitive"
)

// DefaultLocalCacheSize is the default local-layer capacity.
const DefaultLocalCacheSize = 1000

// DefaultSimilarityThreshold is the minimum Jaccard similarity accepted as
// a fuzzy hit.
const DefaultSimilarityThreshold = 0.95

var categoryTTL = map[Category]time.Duration{
	CategoryFactual:       7 * 24 * time.Hour,
	CategoryTechnical:     24 * time.Hour,
	CategoryGeneralQA:     12 * time.Hour,
	CategoryPriceData:     5 * time.Minute,
	CategoryTimeSensitive: 60 * time.Second,
}

// InferCategory applies the first-match substring rules of §4.3.
func InferCategory(query string) Category {
	lower := strings.ToLower(query)
	switch {
	case containsAny(lower, "price", "cost", "market", "trading"):
		return CategoryPriceData
	case containsAny(lower, "now", "today", "current", "latest"):
		return CategoryTimeSensitive
	case containsAny(lower, "code", "function", "program", "implement"):
		return CategoryTechnical
	case containsAny(lower, "capital of", "who is", "what is", "define"):
		return CategoryFactual
	default:
		return CategoryGeneralQA
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// TTLFor returns the configured TTL for a category.
func TTLFor(c Category) time.Duration {
	return categoryTTL[c]
}

// DistributedLayer is the collaborator contract for the cache's
// out-of-process backing store (implemented by an adapter over
// pkg/firestore). Unreachability degrades to local-only (§4.3).
type DistributedLayer interface {
	Get(key string) (*Entry, bool, error)
	Set(key string, e *Entry, ttl time.Duration) error
	Delete(key string) error
}

// Entry is a cached response.
type Entry struct {
	EntryID      string
	Query        string
	QueryHash    string
	Response     []byte
	ResponseHash [32]byte
	ProducerKey  string
	Signature    []byte
	Model        string
	ConfidenceBps int
	Category     Category
	CreatedAt    time.Time
	ExpiresAt    time.Time
	HitCount     int
}

// expired treats an entry as expired the instant now reaches ExpiresAt,
// not strictly after it — an exactly-expired lookup is a miss.
func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache is the local LRU + optional distributed lookup chain.
type Cache struct {
	mu          sync.Mutex
	capacity    int
	threshold   float64
	entries     map[string]*Entry // keyed by QueryHash
	order       []string          // least recently stored or exact-hit first
	distributed DistributedLayer
	metrics     *metrics.Registry
}

func New(distributed DistributedLayer) *Cache {
	return &Cache{
		capacity:  DefaultLocalCacheSize,
		threshold: DefaultSimilarityThreshold,
		entries:   make(map[string]*Entry),
		distributed: distributed,
	}
}

// SetMetrics attaches a metrics registry lookups are reported against.
// Optional; a nil registry (the default) makes observations a no-op.
func (c *Cache) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

func QueryHash(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(h[:])
}

// ResponseHash computes the digest a producer signs alongside QueryHash
// before calling SignEntry. Callers compute this themselves per §4.3's
// "opaque bytes computed by caller" contract; the cache never derives it.
func ResponseHash(response []byte) [32]byte {
	return sha256.Sum256(response)
}

// Lookup consults the local layer, then distributed, then falls back to
// Jaccard similarity search over non-expired local entries.
func (c *Cache) Lookup(query string) (*Entry, bool, error) {
	key := QueryHash(query)
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if !e.expired(now) {
			e.HitCount++
			for i, k := range c.order {
				if k == key {
					c.order = append(append(c.order[:i:i], c.order[i+1:]...), key)
					break
				}
			}
			c.mu.Unlock()
			c.metrics.ObserveCacheLookup("hit_local")
			return e, true, nil
		}
		c.removeLocked(key)
	}
	c.mu.Unlock()

	if c.distributed != nil {
		e, ok, err := c.distributed.Get(key)
		// Any distributed error degrades to the local layer only (§4.3);
		// it is not surfaced since a local similarity search still runs.
		if err == nil && ok && !e.expired(now) {
			c.promote(e)
			c.metrics.ObserveCacheLookup("hit_distributed")
			return e, true, nil
		}
	}

	return c.similaritySearch(query, now)
}

func (c *Cache) similaritySearch(query string, now time.Time) (*Entry, bool, error) {
	words := wordSet(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	var best *Entry
	bestSim := 0.0
	for _, e := range c.entries {
		if e.expired(now) {
			continue
		}
		sim := jaccard(words, wordSet(e.Query))
		if sim >= c.threshold && sim > bestSim {
			best = e
			bestSim = sim
		}
	}
	if best != nil {
		best.HitCount++
		c.metrics.ObserveCacheLookup("hit_similarity")
		return best, true, nil
	}
	c.metrics.ObserveCacheLookup("miss")
	return nil, false, nil
}

// Store inserts e under its category TTL, promoting to the distributed
// layer best-effort (failures there are swallowed per §4.3). Signature and
// response hash are opaque bytes the caller already computed (see
// SignEntry/VerifyEntry); the cache itself does not verify them.
func (c *Cache) Store(e *Entry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.New().String()
	}
	e.QueryHash = QueryHash(e.Query)
	e.CreatedAt = time.Now()
	e.ExpiresAt = e.CreatedAt.Add(TTLFor(e.Category))

	c.mu.Lock()
	c.insertLocked(e)
	c.mu.Unlock()

	if c.distributed != nil {
		_ = c.distributed.Set(e.QueryHash, e, TTLFor(e.Category))
	}
	return nil
}

// Invalidate removes an entry from both layers.
func (c *Cache) Invalidate(query string) error {
	key := QueryHash(query)
	c.mu.Lock()
	c.removeLocked(key)
	c.mu.Unlock()

	if c.distributed != nil {
		return c.distributed.Delete(key)
	}
	return nil
}

func (c *Cache) promote(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(e)
}

func (c *Cache) insertLocked(e *Entry) {
	if _, exists := c.entries[e.QueryHash]; !exists {
		if len(c.entries) >= c.capacity {
			c.evictLocked()
		}
		c.order = append(c.order, e.QueryHash)
	}
	c.entries[e.QueryHash] = e
}

func (c *Cache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// evictLocked removes 10% of capacity: expired entries first, then oldest.
func (c *Cache) evictLocked() {
	batch := c.capacity / 10
	if batch < 1 {
		batch = 1
	}
	now := time.Now()

	removed := 0
	for _, key := range append([]string{}, c.order...) {
		if removed >= batch {
			break
		}
		if e, ok := c.entries[key]; ok && e.expired(now) {
			c.removeLocked(key)
			removed++
		}
	}
	for removed < batch && len(c.order) > 0 {
		c.removeLocked(c.order[0])
		removed++
	}
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
