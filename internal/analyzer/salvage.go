package analyzer

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Fixed strings used when a response is missing or unusable.
const (
	AssessmentDefault  = "Analysis completed"
	AssessmentSalvaged = "Risk analysis completed with limited parsing. Please review manually."
	AssessmentFailed   = "Analysis failed"

	SalvageExplanation = "Potential risk identified by text analysis"
	SalvageSuggestion  = "Review this clause carefully with legal counsel"

	KeyPointMissing        = "Unable to extract key points"
	KeyPointNeedsReview    = "Document content requires legal review"
	KeyPointSimplifyFailed = "Simplification failed - showing original text"

	SummaryFailed  = "Unable to generate summary"
	AnswerFailed   = "Sorry, I couldn't process your question. Please try again."
	AnswerNotFound = "I couldn't find information about that in the document."
)

const (
	salvageMaxFactors   = 5
	salvageMinSentence  = 20
	salvageMaxClause    = 200
	previewLen          = 500
	salvageMinProseLen  = 40
	salvageMaxKeyPoints = 8
)

var riskVocabulary = []string{"risk", "problematic", "concern", "warning", "caution", "penalty", "fee"}

// riskWire is the JSON shape the risk prompt asks for. Pointers tell a
// missing key apart from an empty one.
// Wire objects keep every key raw so one mistyped key only loses itself.
type riskWire struct {
	RiskFactors       json.RawMessage `json:"risk_factors"`
	OverallAssessment json.RawMessage `json:"overall_assessment"`
}

type factorWire struct {
	ClauseText  string `json:"clause_text"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion"`
}

type simplifyWire struct {
	SimplifiedText    json.RawMessage `json:"simplified_text"`
	KeyPoints         json.RawMessage `json:"key_points"`
	JargonDefinitions json.RawMessage `json:"jargon_definitions"`
}

func rawJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// decodeString reports false for absent, null, blank or non-string values.
func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// decodeStrings accepts an array (non-string items are dropped) or a
// single string.
func decodeStrings(raw json.RawMessage) ([]string, bool) {
	var items []json.RawMessage
	if len(raw) > 0 && json.Unmarshal(raw, &items) == nil && items != nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := decodeString(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	if s, ok := decodeString(raw); ok {
		return []string{s}, true
	}
	return nil, false
}

// decodeStringMap keeps the entries whose key and value are non-blank strings.
func decodeStringMap(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	var entries map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil {
		return out
	}
	for k, v := range entries {
		k = strings.TrimSpace(k)
		if def, ok := decodeString(v); ok && k != "" {
			out[k] = def
		}
	}
	return out
}

// salvageRisk keeps sentences of the raw response that mention risk
// vocabulary and turns each into a standard/medium factor.
func salvageRisk(raw string) riskWire {
	var factors []json.RawMessage
	for _, sentence := range strings.Split(raw, ".") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= salvageMinSentence || !mentionsRisk(sentence) {
			continue
		}
		b, err := json.Marshal(factorWire{
			ClauseText:  clip(sentence, salvageMaxClause),
			Category:    "standard",
			Severity:    "medium",
			Explanation: SalvageExplanation,
			Suggestion:  SalvageSuggestion,
		})
		if err != nil {
			continue
		}
		factors = append(factors, b)
		if len(factors) >= salvageMaxFactors {
			break
		}
	}
	if factors == nil {
		factors = []json.RawMessage{}
	}
	return riskWire{RiskFactors: rawJSON(factors), OverallAssessment: rawJSON(AssessmentSalvaged)}
}

func mentionsRisk(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range riskVocabulary {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// salvageSimplify accepts a prose answer as the simplified text, lifting
// bullet lines into key points. Anything else falls back to a preview of the
// document.
func salvageSimplify(raw, document string) simplifyWire {
	prose := stripCodeBlock(raw)
	if len(prose) < salvageMinProseLen || strings.HasPrefix(prose, "{") || strings.HasPrefix(prose, "[") {
		text := clip(document, previewLen) + "... (Full simplification unavailable)"
		return simplifyWire{SimplifiedText: rawJSON(text), KeyPoints: rawJSON([]string{KeyPointNeedsReview})}
	}

	var points []string
	for _, line := range strings.Split(prose, "\n") {
		if p, ok := bulletText(line); ok && len(points) < salvageMaxKeyPoints {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		points = []string{KeyPointMissing}
	}
	return simplifyWire{SimplifiedText: rawJSON(prose), KeyPoints: rawJSON(points)}
}

// bulletText recognises "- x", "* x", "• x" and "1. x" / "1) x" lines.
func bulletText(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return nonEmpty(line[len(marker):])
		}
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return nonEmpty(line[i+2:])
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// clip returns at most n bytes of s without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
