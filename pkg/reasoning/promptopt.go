// Copyright 2025 Certen Protocol

package reasoning

import (
	"strconv"
	"strings"
	"unicode"
)

// EntityType classifies an extracted capitalized phrase.
type EntityType string

const (
	EntityLocation     EntityType = "Location"
	EntityOrganization EntityType = "Organization"
	EntityTechnical    EntityType = "Technical"
	EntityDate         EntityType = "Date"
	EntityNumber       EntityType = "Number"
)

// Entity is a capitalized phrase extracted from prompt text.
type Entity struct {
	Text string
	Type EntityType
}

var defaultStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true, "and": true,
	"or": true, "but": true, "with": true, "as": true, "by": true, "it": true, "this": true,
	"that": true, "be": true, "have": true, "has": true, "had": true,
}

// DeduplicateSentences keeps a sentence only if more than 30% of its
// content words (non-stop-word tokens) are previously unseen (§4.6).
func DeduplicateSentences(text string, stopWords map[string]bool) string {
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	seen := make(map[string]bool)
	var kept []string

	for _, sentence := range strings.Split(text, ".") {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		contentWords := contentWords(trimmed, stopWords)
		if len(contentWords) == 0 {
			continue
		}
		unseen := 0
		for _, w := range contentWords {
			if !seen[w] {
				unseen++
			}
		}
		if float64(unseen)/float64(len(contentWords)) > 0.30 {
			kept = append(kept, trimmed)
		}
		for _, w := range contentWords {
			seen[w] = true
		}
	}
	return strings.Join(kept, ". ")
}

func contentWords(sentence string, stopWords map[string]bool) []string {
	var out []string
	for _, w := range strings.Fields(sentence) {
		lower := strings.ToLower(strings.Trim(w, ".,;:!?\"'"))
		if lower == "" || stopWords[lower] {
			continue
		}
		out = append(out, lower)
	}
	return out
}

// ExtractEntities finds runs of consecutive capitalized words and tags
// each by a suffix/substring heuristic (§4.6).
func ExtractEntities(text string) []Entity {
	var entities []Entity
	words := strings.Fields(text)

	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		phrase := strings.Join(run, " ")
		entities = append(entities, Entity{Text: phrase, Type: classifyEntity(phrase)})
		run = nil
	}

	for _, w := range words {
		trimmed := strings.Trim(w, ".,;:!?\"'")
		if trimmed == "" {
			flush()
			continue
		}
		r := []rune(trimmed)
		if unicode.IsUpper(r[0]) {
			run = append(run, trimmed)
		} else {
			flush()
		}
	}
	flush()

	return entities
}

func classifyEntity(phrase string) EntityType {
	lower := strings.ToLower(phrase)
	switch {
	case hasAnySuffix(lower, "city", "country", "state", "province", "republic"):
		return EntityLocation
	case hasAnySuffix(lower, "inc", "corp", "corporation", "foundation", "association", "ltd"):
		return EntityOrganization
	case hasAnySubstring(lower, "api", "protocol", "sdk", "framework", "engine"):
		return EntityTechnical
	case isDateLike(phrase):
		return EntityDate
	case isNumberLike(phrase):
		return EntityNumber
	default:
		return EntityOrganization
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func hasAnySubstring(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
}

func isDateLike(phrase string) bool {
	for _, w := range strings.Fields(phrase) {
		if monthNames[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

func isNumberLike(phrase string) bool {
	for _, w := range strings.Fields(phrase) {
		if _, err := strconv.ParseFloat(strings.TrimLeft(w, "$"), 64); err == nil {
			return true
		}
	}
	return false
}

// KGLookup resolves an entity's text to a knowledge-graph id, if known.
type KGLookup func(entityText string) (kgID string, ok bool)

// SubstituteKGReferences replaces recognized entity mentions in text with
// `[kg_id:label]` markers when a lookup succeeds.
func SubstituteKGReferences(text string, entities []Entity, lookup KGLookup) string {
	if lookup == nil {
		return text
	}
	out := text
	for _, e := range entities {
		if id, ok := lookup(e.Text); ok {
			out = strings.ReplaceAll(out, e.Text, "[kg_id:"+id+"]")
		}
	}
	return out
}

// SchemaField is one field of an optional structured-output JSON schema.
type SchemaField struct {
	Name string
	Type string
}

// BuildOutputSchema returns the fixed answer/confidence/reasoning fields
// plus one field per extracted entity (§4.6).
func BuildOutputSchema(entities []Entity) []SchemaField {
	fields := []SchemaField{
		{Name: "answer", Type: "string"},
		{Name: "confidence", Type: "number"},
		{Name: "reasoning", Type: "string"},
	}
	for _, e := range entities {
		fields = append(fields, SchemaField{Name: strings.ToLower(strings.ReplaceAll(e.Text, " ", "_")), Type: "string"})
	}
	return fields
}

// EstimateTokens approximates token count from words and character count.
func EstimateTokens(text string) float64 {
	words := float64(len(strings.Fields(text)))
	chars := float64(len(text))
	return 1.3*words + 0.1*chars
}

// Truncate removes the middle of text and inserts a marker when the
// estimated token count exceeds maxInputTokens.
func Truncate(text string, maxInputTokens int) string {
	if EstimateTokens(text) <= float64(maxInputTokens) {
		return text
	}

	const marker = "…[truncated]…"
	runes := []rune(text)
	// Binary-search the largest symmetric head+tail that fits the budget.
	lo, hi := 0, len(runes)/2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		candidate := string(runes[:mid]) + marker + string(runes[len(runes)-mid:])
		if EstimateTokens(candidate) <= float64(maxInputTokens) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		return marker
	}
	return string(runes[:lo]) + marker + string(runes[len(runes)-lo:])
}
