// Copyright 2025 Certen Protocol

package verification

import (
	"context"
	"testing"

	"github.com/intentmesh/coordinator/pkg/knowledge"
)

func TestScore_HallucinationFails(t *testing.T) {
	s := NewScorer(DefaultConfig(knowledge.NewGraph()))
	res := s.Score(context.Background(), Request{
		Query:    "What is the capital of France?",
		Response: "I'm not sure, but I think it might be Paris.",
	})
	if !res.Hallucinating {
		t.Fatalf("expected hallucination to be detected")
	}
	if res.Passed {
		t.Fatalf("expected hallucinating response to fail regardless of score")
	}
	if len(res.ExtractedTriplets) != 0 {
		t.Fatalf("expected no triplets committed on failure")
	}
}

func TestScore_TransitiveKGMatchFeedsScore(t *testing.T) {
	graph := knowledge.NewGraph()
	graph.AddTriplet("paris", "located_in", "france", 9000, knowledge.SourceHumanVerified)
	graph.AddTriplet("france", "located_in", "europe", 9000, knowledge.SourceHumanVerified)

	s := NewScorer(DefaultConfig(graph))
	res := s.Score(context.Background(), Request{
		Query:    "Where is Paris located in relation to Europe?",
		Response: "Paris is located in europe because it sits within France, which is located in Europe.",
	})
	if res.KGMatch <= 0.5 {
		t.Fatalf("expected transitive support to push kg_match above baseline, got %f", res.KGMatch)
	}
}

func TestScore_NoExtractedFactsUsesBaselineKGMatch(t *testing.T) {
	s := NewScorer(DefaultConfig(knowledge.NewGraph()))
	res := s.Score(context.Background(), Request{
		Query:    "How are you?",
		Response: "Doing well, thanks for asking!",
	})
	if res.KGMatch != 0.5 {
		t.Fatalf("expected baseline kg_match of 0.5 with no extractable triplets, got %f", res.KGMatch)
	}
}

type stubValidator struct {
	resp CrossValidationResponse
	err  error
}

func (s stubValidator) CrossValidate(ctx context.Context, query, response string, depth int) (CrossValidationResponse, error) {
	return s.resp, s.err
}

func TestFactConsistency_WeightedByConfidence(t *testing.T) {
	cfg := DefaultConfig(knowledge.NewGraph())
	cfg.CrossValidators = []CrossValidator{
		stubValidator{resp: CrossValidationResponse{Confidence: 0.9, Agrees: true}},
		stubValidator{resp: CrossValidationResponse{Confidence: 0.1, Agrees: false}},
	}
	s := NewScorer(cfg)
	fc := s.factConsistency(context.Background(), "q", "r")
	want := 0.9 / 1.0
	if fc < want-0.01 || fc > want+0.01 {
		t.Fatalf("expected weighted fact_consistency ~%f, got %f", want, fc)
	}
}

func TestFactConsistency_NoValidatorsDefaultsPointSeven(t *testing.T) {
	s := NewScorer(DefaultConfig(knowledge.NewGraph()))
	fc := s.factConsistency(context.Background(), "q", "r")
	if fc != 0.7 {
		t.Fatalf("expected default fact_consistency of 0.7, got %f", fc)
	}
}

func TestParseAgreement(t *testing.T) {
	cases := []struct {
		answer string
		agrees bool
		known  bool
	}{
		{"Yes, that is accurate.", true, true},
		{"No, that's incorrect.", false, true},
		{"Unclear from the information given.", false, false},
	}
	for _, c := range cases {
		agrees, known := ParseAgreement(c.answer)
		if agrees != c.agrees || known != c.known {
			t.Fatalf("ParseAgreement(%q) = (%v,%v), want (%v,%v)", c.answer, agrees, known, c.agrees, c.known)
		}
	}
}
