// Package ai holds the LLM-facing helpers shared by every gateway adapter:
// JSON recovery from free text, exam document validation and the circuit
// breaker used around upstream calls.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// Extraction is the result of recovering a JSON object from model text.
// It is either Parsed (Doc holds a syntactically valid object) or NotFound.
type Extraction struct {
	doc   json.RawMessage
	found bool
}

// Parsed wraps a valid JSON document.
func Parsed(doc json.RawMessage) Extraction { return Extraction{doc: doc, found: true} }

// NotFound is the empty extraction.
func NotFound() Extraction { return Extraction{} }

// Found reports whether an object was recovered.
func (e Extraction) Found() bool { return e.found }

// Doc returns the recovered document and whether it exists.
func (e Extraction) Doc() (json.RawMessage, bool) { return e.doc, e.found }

// Err returns ErrExtraction for NotFound and nil otherwise.
func (e Extraction) Err() error {
	if e.found {
		return nil
	}
	return fmt.Errorf("%w: no JSON object in model output", domain.ErrExtraction)
}

// Decode unmarshals the document into v.
func (e Extraction) Decode(v any) error {
	if !e.found {
		return e.Err()
	}
	if err := json.Unmarshal(e.doc, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	return nil
}

// ExtractJSON recovers one JSON object from raw model output. The interior of
// the first fenced code block is used when present, otherwise the whole text.
// Within it the span from the first '{' to the last '}' must be valid JSON.
func ExtractJSON(text string) Extraction {
	candidate := text
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else {
		candidate = strings.TrimSpace(candidate)
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return NotFound()
	}
	slice := candidate[start : end+1]
	if !json.Valid([]byte(slice)) {
		return NotFound()
	}
	return Parsed(json.RawMessage(slice))
}

// LowerKeys decodes an extracted object into a map with lower-cased keys.
// Later duplicates win, matching a plain map rebuild.
func LowerKeys(e Extraction) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := e.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}
