// Copyright 2025 Certen Protocol
//
// Package truthdiscovery implements multi-node answer aggregation (§4.5.2):
// cluster node responses by Jaccard similarity, select the largest cluster,
// and weight its members by reputation to produce a consensus answer.
// Service shape (Config/DefaultConfig/logger/RWMutex) is grounded on the
// teacher's attestation-collection service.
package truthdiscovery

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultSimilarityThreshold is the minimum Jaccard similarity for two
// responses to join the same cluster.
const DefaultSimilarityThreshold = 0.5

// Response is one node's answer to a task, awaiting aggregation.
type Response struct {
	NodeID            string
	Text              string
	ClaimedConfidence float64 // 0..1
}

// Consensus is the aggregation result.
type Consensus struct {
	Text             string
	Confidence       float64
	AgreementRatio   float64
	ClusterSize      int
	TotalResponses   int
}

// ReputationLookup resolves a node's reputation weight (defaults to 1.0 if
// unknown, per §4.5.2).
type ReputationLookup func(nodeID string) (float64, bool)

// Config configures an Aggregator.
type Config struct {
	SimilarityThreshold float64
	Reputation          ReputationLookup
	Timeout             time.Duration
	Logger              *log.Logger
}

func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		Timeout:             30 * time.Second,
		Logger:              log.New(os.Stdout, "[TruthDiscovery] ", log.LstdFlags),
	}
}

// Aggregator clusters and weights multi-node responses for a task.
type Aggregator struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *log.Logger
}

func NewAggregator(cfg *Config) *Aggregator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[TruthDiscovery] ", log.LstdFlags)
	}
	if cfg.Reputation == nil {
		cfg.Reputation = func(string) (float64, bool) { return 1.0, false }
	}
	return &Aggregator{cfg: cfg, logger: cfg.Logger}
}

// Aggregate clusters responses by Jaccard similarity (greedy single-pass:
// each unassigned response seeds a cluster; subsequent responses within
// threshold of the seed join it), then reputation-weights the largest
// cluster.
func (a *Aggregator) Aggregate(responses []Response) Consensus {
	a.mu.RLock()
	threshold := a.cfg.SimilarityThreshold
	repLookup := a.cfg.Reputation
	a.mu.RUnlock()

	if len(responses) == 0 {
		return Consensus{}
	}

	clusters := cluster(responses, threshold)

	best := clusters[0]
	for _, c := range clusters[1:] {
		if len(c) > len(best) {
			best = c
		}
	}

	var weightedSum, reputationSum float64
	for _, r := range best {
		rep, known := repLookup(r.NodeID)
		if !known {
			rep = 1.0
		}
		weightedSum += rep * r.ClaimedConfidence
		reputationSum += rep
	}

	consensusConfidence := 0.0
	if reputationSum > 0 {
		consensusConfidence = weightedSum / reputationSum
	}

	a.logger.Printf("aggregated %d responses into %d clusters, largest=%d", len(responses), len(clusters), len(best))

	return Consensus{
		Text:           best[0].Text,
		Confidence:     consensusConfidence,
		AgreementRatio: float64(len(best)) / float64(len(responses)),
		ClusterSize:    len(best),
		TotalResponses: len(responses),
	}
}

func cluster(responses []Response, threshold float64) [][]Response {
	var clusters [][]Response
	assigned := make([]bool, len(responses))

	for i, r := range responses {
		if assigned[i] {
			continue
		}
		seed := r
		group := []Response{seed}
		assigned[i] = true
		seedWords := wordSet(seed.Text)

		for j := i + 1; j < len(responses); j++ {
			if assigned[j] {
				continue
			}
			if jaccard(seedWords, wordSet(responses[j].Text)) >= threshold {
				group = append(group, responses[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, group)
	}
	return clusters
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
