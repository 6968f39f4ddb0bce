// Copyright 2025 Certen Protocol

package reasoning

import (
	"strings"
	"testing"
)

func TestDeduplicateSentences_DropsRedundantSentences(t *testing.T) {
	text := "The cat sat on the mat. The cat sat on the mat again. A dog ran through the park quickly."
	out := DeduplicateSentences(text, nil)
	if !strings.Contains(out, "cat sat") {
		t.Fatalf("expected first novel sentence kept, got %q", out)
	}
	if !strings.Contains(out, "dog ran") {
		t.Fatalf("expected fully novel sentence kept, got %q", out)
	}
}

func TestExtractEntities_FindsCapitalizedRuns(t *testing.T) {
	entities := ExtractEntities("Paris is the capital of France according to the United Nations.")
	var texts []string
	for _, e := range entities {
		texts = append(texts, e.Text)
	}
	joined := strings.Join(texts, "|")
	if !strings.Contains(joined, "Paris") || !strings.Contains(joined, "France") {
		t.Fatalf("expected Paris and France extracted, got %v", texts)
	}
}

func TestBuildOutputSchema_IncludesEntityFields(t *testing.T) {
	entities := []Entity{{Text: "Paris", Type: EntityLocation}}
	fields := BuildOutputSchema(entities)
	if len(fields) != 4 {
		t.Fatalf("expected 3 fixed fields + 1 entity field, got %d", len(fields))
	}
	if fields[0].Name != "answer" || fields[1].Name != "confidence" || fields[2].Name != "reasoning" {
		t.Fatalf("unexpected fixed field order: %+v", fields[:3])
	}
	if fields[3].Name != "paris" {
		t.Fatalf("expected entity field named after entity text, got %s", fields[3].Name)
	}
}

func TestEstimateTokens(t *testing.T) {
	text := "one two three"
	got := EstimateTokens(text)
	want := 1.3*3 + 0.1*float64(len(text))
	if got != want {
		t.Fatalf("EstimateTokens(%q) = %f, want %f", text, got, want)
	}
}

func TestTruncate_NoOpUnderBudget(t *testing.T) {
	text := "short text"
	if got := Truncate(text, 1000); got != text {
		t.Fatalf("expected no-op under budget, got %q", got)
	}
}

func TestTruncate_InsertsMarkerOverBudget(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	out := Truncate(text, 100)
	if !strings.Contains(out, "…[truncated]…") {
		t.Fatalf("expected truncation marker in output")
	}
	if EstimateTokens(out) > 100+50 {
		t.Fatalf("expected truncated estimate near budget, got %f", EstimateTokens(out))
	}
}

func TestSubstituteKGReferences(t *testing.T) {
	entities := []Entity{{Text: "Paris", Type: EntityLocation}}
	lookup := func(text string) (string, bool) {
		if text == "Paris" {
			return "e42", true
		}
		return "", false
	}
	out := SubstituteKGReferences("Paris is lovely in spring.", entities, lookup)
	if !strings.Contains(out, "[kg_id:e42]") {
		t.Fatalf("expected kg_id substitution, got %q", out)
	}
}
