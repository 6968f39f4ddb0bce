// Copyright 2025 Certen Protocol
//
// Package verification implements the verification scoring pipeline (C5,
// §4.5.1): knowledge-graph match, semantic coverage, cross-model
// agreement, and hallucination heuristics combine into a single weighted
// score. Config/DefaultConfig/Timeout mirror the teacher's verifier idiom.
package verification

import (
	"context"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/intentmesh/coordinator/pkg/knowledge"
)

// AcceptanceThresholdBps is the minimum final_score_bps to pass (§4.5.1).
const AcceptanceThresholdBps = 7000

// CrossValidationDepthLimit bounds re-entrant cross-validation: a
// cross-validation request itself must never trigger another one (§9).
const CrossValidationDepthLimit = 1

var uncertaintyPhrases = []string{
	"i'm not sure", "i don't know", "possibly", "might be",
	"as an ai", "i cannot verify", "i think", "in my opinion",
}

var contradictionPhrases = []string{
	"but actually", "however, that's wrong", "however, that is wrong",
}

var overconfidencePhrases = []string{
	"100% certain", "absolutely guaranteed", "impossible to fail", "never wrong",
}

// CrossValidationResponse is one verifier's judgment of an answer.
type CrossValidationResponse struct {
	Confidence float64 // 0..1, the verifier's own claimed confidence
	Agrees     bool
}

// CrossValidator issues a second reasoning request (complexity 3000,
// workflow Standard) asking whether a response is accurate, per §4.5.1
// step 3. Implementations must reject calls at depth > CrossValidationDepthLimit.
type CrossValidator interface {
	CrossValidate(ctx context.Context, query, response string, depth int) (CrossValidationResponse, error)
}

// ParseAgreement classifies a cross-validator's free-text answer.
func ParseAgreement(answer string) (agrees bool, known bool) {
	lower := strings.ToLower(answer)
	// "incorrect"/"inaccurate" contain "correct"/"accurate", so they are
	// checked first.
	if containsAny(lower, "incorrect", "inaccurate") {
		return false, true
	}
	if containsAny(lower, "yes", "correct", "accurate") {
		return true, true
	}
	if containsAny(lower, "no") {
		return false, true
	}
	return false, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Request is the input to Score.
type Request struct {
	TaskID            uint64
	Query             string
	Response          string
	Model             string
	ClaimedConfidence float64
}

// Result is the output of Score.
type Result struct {
	KGMatch         float64
	Semantic        float64
	FactConsistency float64
	Hallucinating   bool
	FinalScoreBps   int
	Passed          bool
	ExtractedTriplets []knowledge.Triplet
}

// Config configures a Scorer.
type Config struct {
	Graph           *knowledge.Graph
	CrossValidators []CrossValidator
	Timeout         time.Duration
	Logger          *log.Logger
}

func DefaultConfig(graph *knowledge.Graph) *Config {
	return &Config{
		Graph:   graph,
		Timeout: 30 * time.Second,
		Logger:  log.New(os.Stdout, "[Verification] ", log.LstdFlags),
	}
}

// Scorer computes verification scores per §4.5.1.
type Scorer struct {
	cfg    *Config
	logger *log.Logger
}

func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig(knowledge.NewGraph())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[Verification] ", log.LstdFlags)
	}
	return &Scorer{cfg: cfg, logger: cfg.Logger}
}

// Score runs the full §4.5.1 pipeline.
func (s *Scorer) Score(ctx context.Context, req Request) Result {
	triplets := knowledge.ExtractTriplets(req.Response)
	kgMatch := s.kgMatch(triplets)
	semantic := semanticScore(req.Query, req.Response)
	factConsistency := s.factConsistency(ctx, req.Query, req.Response)
	hallucinating := isHallucinating(req.Response)

	weighted := 0.3*semantic + 0.4*factConsistency + 0.3*kgMatch
	if hallucinating {
		weighted *= 0.5
	}

	finalBps := int(math.Round(weighted * 10000))
	passed := finalBps >= AcceptanceThresholdBps && !hallucinating

	result := Result{
		KGMatch:         kgMatch,
		Semantic:        semantic,
		FactConsistency: factConsistency,
		Hallucinating:   hallucinating,
		FinalScoreBps:   finalBps,
		Passed:          passed,
	}

	if passed && s.cfg.Graph != nil {
		for _, t := range triplets {
			if _, err := s.cfg.Graph.AddTriplet(t.Subject, t.Predicate, t.Object, t.Confidence, t.Source); err != nil {
				s.logger.Printf("failed to commit triplet to knowledge graph: %v", err)
				continue
			}
			result.ExtractedTriplets = append(result.ExtractedTriplets, t)
		}
	}

	return result
}

func (s *Scorer) kgMatch(triplets []knowledge.Triplet) float64 {
	if s.cfg.Graph == nil || len(triplets) == 0 {
		return 0.5
	}
	var sum float64
	supported := 0
	for _, t := range triplets {
		v := s.cfg.Graph.VerifyFact(t)
		if v.Supported {
			sum += v.Confidence
			supported++
		}
	}
	if supported == 0 {
		return 0.5
	}
	return sum / float64(supported)
}

func semanticScore(query, response string) float64 {
	coverage := wordCoverage(query, response)
	length := lengthScore(response)
	return 0.7*coverage + 0.3*length
}

func wordCoverage(query, response string) float64 {
	qWords := longWords(query)
	if len(qWords) == 0 {
		return 0
	}
	rWords := longWords(response)
	match := 0
	for w := range qWords {
		if _, ok := rWords[w]; ok {
			match++
		}
	}
	return float64(match) / float64(len(qWords))
}

func longWords(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}

func lengthScore(response string) float64 {
	n := len(response)
	switch {
	case n < 20:
		return 0.3
	case n < 100:
		return 0.7
	default:
		return 1.0
	}
}

func (s *Scorer) factConsistency(ctx context.Context, query, response string) float64 {
	if len(s.cfg.CrossValidators) == 0 {
		return 0.7
	}

	var weightedAgree, confidenceSum float64
	for _, cv := range s.cfg.CrossValidators {
		resp, err := cv.CrossValidate(ctx, query, response, CrossValidationDepthLimit)
		if err != nil {
			s.logger.Printf("cross-validation failed: %v", err)
			continue
		}
		confidenceSum += resp.Confidence
		if resp.Agrees {
			weightedAgree += resp.Confidence
		}
	}
	if confidenceSum == 0 {
		return 0.7
	}
	return weightedAgree / confidenceSum
}

func isHallucinating(response string) bool {
	lower := strings.ToLower(response)
	return containsAny(lower, uncertaintyPhrases...) ||
		containsAny(lower, contradictionPhrases...) ||
		containsAny(lower, overconfidencePhrases...)
}
