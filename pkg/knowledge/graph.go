// Copyright 2025 Certen Protocol
//
// Package knowledge implements the coordinator's knowledge graph: entities,
// triplets, rule-based extraction, fact verification, and a deterministic
// Merkle commitment over the triplet set. Readers take an RLock; writers
// serialize, matching pkg/merkle's readers-writer discipline.
package knowledge

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/intentmesh/coordinator/pkg/errs"
	"github.com/intentmesh/coordinator/pkg/merkle"
)

// TripletSource identifies how a triplet was added.
type TripletSource string

const (
	SourceLLMExtraction TripletSource = "LLMExtraction"
	SourceExternalImport TripletSource = "ExternalImport"
	SourceHumanVerified  TripletSource = "HumanVerified"
	SourceDerived        TripletSource = "Derived"
)

// DefaultEntityCap is the default capacity ceiling (§4.2 CapacityExceeded).
const DefaultEntityCap = 100_000

// DefaultAcceptanceThreshold is the default supported-confidence cutoff.
const DefaultAcceptanceThreshold = 0.70

// multiValuedPredicates never contradict each other even with a different
// object for the same (subject, predicate).
var multiValuedPredicates = map[string]bool{
	"has":         true,
	"contains":    true,
	"part_of":     true,
	"related_to":  true,
}

// transitivePredicates support 2-hop path inference.
var transitivePredicates = map[string]bool{
	"located_in": true,
	"is_a":       true,
	"part_of":    true,
}

// Entity is a node in the graph.
type Entity struct {
	ID         string
	Label      string
	Type       string
	Aliases    []string
	Properties map[string]string
}

// Triplet is a canonicalized (subject, predicate, object) fact.
type Triplet struct {
	Subject    string
	Predicate  string
	Object     string
	Confidence int // bps, 0-10000
	Source     TripletSource
	CreatedAt  time.Time
	VerifiedAt time.Time
}

func (t Triplet) hash() [32]byte {
	return sha256.Sum256([]byte(t.Subject + "\x00" + t.Predicate + "\x00" + t.Object))
}

// Verification is the result of verify_fact.
type Verification struct {
	Supported     bool
	Confidence    float64
	Contradicted  bool
	PathLength    int
	Contradictors []Triplet
}

// Graph holds entities and triplets in memory, guarded by an RWMutex.
type Graph struct {
	mu         sync.RWMutex
	entities   map[string]*Entity
	triplets   []Triplet
	entityCap  int
	nextID     int
}

func NewGraph() *Graph {
	return &Graph{
		entities:  make(map[string]*Entity),
		entityCap: DefaultEntityCap,
	}
}

// WithEntityCap overrides the default entity capacity (for tests).
func (g *Graph) WithEntityCap(cap int) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entityCap = cap
	return g
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddEntity inserts or returns the existing entity for label.
func (g *Graph) AddEntity(label, typ string, aliases []string) (*Entity, error) {
	const op = "knowledge.AddEntity"
	label = canon(label)

	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entities[label]; ok {
		return e, nil
	}

	if len(g.entities) >= g.entityCap {
		return nil, errs.CapacityExceededf(op, "entity cap %d reached", g.entityCap)
	}

	g.nextID++
	e := &Entity{
		ID:         fmt.Sprintf("e%d", g.nextID),
		Label:      label,
		Type:       typ,
		Aliases:    aliases,
		Properties: map[string]string{},
	}
	g.entities[label] = e
	return e, nil
}

// AddTriplet inserts a canonicalized triplet, auto-creating any entity that
// does not yet exist under a synthetic id.
func (g *Graph) AddTriplet(subject, predicate, object string, confidenceBps int, source TripletSource) (Triplet, error) {
	subject = canon(subject)
	predicate = canon(predicate)
	object = canon(object)

	if _, err := g.AddEntity(subject, "", nil); err != nil {
		return Triplet{}, err
	}
	if _, err := g.AddEntity(object, "", nil); err != nil {
		return Triplet{}, err
	}

	t := Triplet{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Confidence: confidenceBps,
		Source:     source,
		CreatedAt:  time.Now(),
	}
	if source == SourceHumanVerified {
		t.VerifiedAt = t.CreatedAt
	}

	g.mu.Lock()
	g.triplets = append(g.triplets, t)
	g.mu.Unlock()
	return t, nil
}

// QueryBySubject returns all triplets with the given subject.
func (g *Graph) QueryBySubject(subject string) []Triplet {
	subject = canon(subject)
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Triplet
	for _, t := range g.triplets {
		if t.Subject == subject {
			out = append(out, t)
		}
	}
	return out
}

// QueryByObject returns all triplets with the given object.
func (g *Graph) QueryByObject(object string) []Triplet {
	object = canon(object)
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Triplet
	for _, t := range g.triplets {
		if t.Object == object {
			out = append(out, t)
		}
	}
	return out
}

// VerifyFact checks a claimed triplet against the stored set: direct
// match, contradiction, or transitive 2-hop support (§4.2).
func (g *Graph) VerifyFact(claim Triplet) Verification {
	subject := canon(claim.Subject)
	predicate := canon(claim.Predicate)
	object := canon(claim.Object)

	g.mu.RLock()
	defer g.mu.RUnlock()

	var supporting []Triplet
	var contradicting []Triplet
	for _, t := range g.triplets {
		if t.Subject == subject && t.Predicate == predicate {
			if t.Object == object {
				supporting = append(supporting, t)
			} else if !multiValuedPredicates[predicate] {
				contradicting = append(contradicting, t)
			}
		}
	}

	// A transitive predicate's first hop (paris located_in france) differs
	// in object from the claim (paris located_in europe), so the 2-hop
	// search runs before differing objects count as contradictions.
	if len(supporting) == 0 && transitivePredicates[predicate] {
		if path, ok := g.findTwoHop(subject, predicate, object); ok {
			conf := meanConfidence(path) / 10000.0
			return Verification{Supported: conf >= DefaultAcceptanceThreshold, Confidence: conf, PathLength: 2}
		}
	}

	if len(contradicting) > 0 {
		return Verification{Supported: false, Confidence: 0, Contradicted: true, Contradictors: contradicting}
	}

	if len(supporting) > 0 {
		conf := meanConfidence(supporting) / 10000.0
		return Verification{Supported: conf >= DefaultAcceptanceThreshold, Confidence: conf}
	}

	return Verification{Supported: false, Confidence: 0.5}
}

func (g *Graph) findTwoHop(subject, predicate, object string) ([]Triplet, bool) {
	for _, first := range g.triplets {
		if first.Subject != subject || first.Predicate != predicate {
			continue
		}
		for _, second := range g.triplets {
			if second.Subject == first.Object && second.Predicate == predicate && second.Object == object {
				return []Triplet{first, second}, true
			}
		}
	}
	return nil, false
}

func meanConfidence(triplets []Triplet) float64 {
	if len(triplets) == 0 {
		return 0
	}
	sum := 0
	for _, t := range triplets {
		sum += t.Confidence
	}
	return float64(sum) / float64(len(triplets))
}

// MerkleRoot computes the deterministic Merkle root over all stored
// triplets: sha256(subject‖predicate‖object) per leaf, sorted ascending,
// pairwise hashed with odd-leaf duplication (§4.2).
func (g *Graph) MerkleRoot() [32]byte {
	g.mu.RLock()
	leaves := make([][]byte, len(g.triplets))
	for i, t := range g.triplets {
		h := t.hash()
		leaves[i] = h[:]
	}
	g.mu.RUnlock()

	sort.Slice(leaves, func(i, j int) bool {
		return string(leaves[i]) < string(leaves[j])
	})
	return merkle.RootOf(leaves)
}
