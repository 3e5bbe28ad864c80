package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Outcome reports which tier of a StructuredParser produced a value.
type Outcome int

const (
	// OutcomeStrict means the response decoded as the expected JSON object.
	OutcomeStrict Outcome = iota
	// OutcomeSalvaged means the heuristic tier built the value from raw text.
	OutcomeSalvaged
)

func (o Outcome) String() string {
	if o == OutcomeSalvaged {
		return "salvaged"
	}
	return "strict"
}

var errNotObject = errors.New("response is not a JSON object")

// StructuredParser decodes an LLM response into T. The strict tier expects a
// single JSON object, optionally wrapped in a markdown fence. When that fails
// the Salvage func gets the raw response and must return a usable value.
type StructuredParser[T any] struct {
	Salvage func(raw string) T
}

// Parse never fails. The returned error explains why the strict tier was
// skipped and is nil for OutcomeStrict.
func (p StructuredParser[T]) Parse(raw string) (T, Outcome, error) {
	var v T
	err := decodeObject(raw, &v)
	if err == nil {
		return v, OutcomeStrict, nil
	}
	var zero T
	if p.Salvage != nil {
		zero = p.Salvage(raw)
	}
	return zero, OutcomeSalvaged, err
}

func decodeObject(raw string, v any) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

var (
	fencedJSONRe = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	codeBlockRe  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// ExtractJSON pulls the JSON object text out of a model response. A fenced
// block tagged json wins; otherwise a generic fence around the whole response
// is stripped. The result must start with "{".
func ExtractJSON(raw string) (string, error) {
	s := raw
	if m := fencedJSONRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = stripCodeBlock(s)
	if !strings.HasPrefix(s, "{") {
		return "", errNotObject
	}
	return s, nil
}

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
