// Copyright 2025 Certen Protocol

package knowledge

import "strings"

// extractionRule is tried in order; the first match emits one triplet and
// extraction moves to the next sentence.
type extractionRule struct {
	markers    []string
	predicate  string
	confidence int
}

var extractionRules = []extractionRule{
	{markers: []string{" is a ", " is an ", " are "}, predicate: "is_a", confidence: 7000},
	{markers: []string{" located in ", " is in ", " capital of "}, predicate: "located_in", confidence: 6500},
	{markers: []string{" has ", " have ", " contains "}, predicate: "has", confidence: 6000},
	{markers: []string{"=", " equals "}, predicate: "equal_to", confidence: 9000},
}

// ExtractTriplets applies the rule-based baseline extractor (§4.2) to text,
// splitting on sentence boundaries and testing each rule in order.
func ExtractTriplets(text string) []Triplet {
	var out []Triplet
	for _, sentence := range strings.Split(text, ".") {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if t, ok := extractSentence(trimmed); ok {
			out = append(out, t)
		}
	}
	return out
}

func extractSentence(sentence string) (Triplet, bool) {
	lower := strings.ToLower(sentence)
	for _, rule := range extractionRules {
		for _, marker := range rule.markers {
			idx := strings.Index(lower, marker)
			if idx < 0 {
				continue
			}
			subject := strings.TrimSpace(sentence[:idx])
			object := strings.TrimSpace(sentence[idx+len(marker):])
			if subject == "" || object == "" {
				continue
			}
			return Triplet{
				Subject:    canon(subject),
				Predicate:  rule.predicate,
				Object:     canon(object),
				Confidence: rule.confidence,
				Source:     SourceLLMExtraction,
			}, true
		}
	}
	return Triplet{}, false
}
