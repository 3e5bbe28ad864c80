// Package domain holds the value objects shared by the analysis pipeline.
// Values are constructed once and replaced wholesale; stores hand out copies.
package domain

import (
	"strings"
	"time"
)

// DocumentType is the category assigned by the classifier.
type DocumentType string

const (
	TypeRental     DocumentType = "rental"
	TypeLoan       DocumentType = "loan"
	TypeEmployment DocumentType = "employment"
	TypeService    DocumentType = "service"
	TypeNDA        DocumentType = "nda"
	TypeOther      DocumentType = "other"
)

// DocumentTypes lists every document type in wire order.
var DocumentTypes = []DocumentType{TypeRental, TypeLoan, TypeEmployment, TypeService, TypeNDA, TypeOther}

// ParseDocumentType accepts a wire value, case-insensitively.
func ParseDocumentType(s string) (DocumentType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range DocumentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Label is a human readable name used in prompts.
func (t DocumentType) Label() string {
	switch t {
	case TypeNDA:
		return "non-disclosure agreement"
	case TypeOther, "":
		return "legal document"
	default:
		return string(t) + " agreement"
	}
}

// RiskCategory groups risk factors by what they put at stake.
type RiskCategory string

const (
	CategoryFinancial  RiskCategory = "financial"
	CategoryCommitment RiskCategory = "commitment"
	CategoryRights     RiskCategory = "rights"
	CategoryStandard   RiskCategory = "standard"
)

// ParseRiskCategory accepts a wire value, case-insensitively.
func ParseRiskCategory(s string) (RiskCategory, bool) {
	switch c := RiskCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryFinancial, CategoryCommitment, CategoryRights, CategoryStandard:
		return c, true
	}
	return "", false
}

// Severity is the risk level of a single factor or of a whole document.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity accepts a wire value, case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v, true
	}
	return "", false
}

// Rank orders severities; higher is worse. Unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ClausePosition is a byte range [Start, End) inside the document text.
type ClausePosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RiskFactor is one problematic clause reported by the analyzer.
type RiskFactor struct {
	ID          string          `json:"id"`
	ClauseText  string          `json:"clause_text"`
	Category    RiskCategory    `json:"category"`
	Severity    Severity        `json:"severity"`
	Explanation string          `json:"explanation"`
	Suggestion  string          `json:"suggestion,omitempty"`
	Position    *ClausePosition `json:"position,omitempty"`
}

// AnalysisResult is the complete analyzer output for one document.
type AnalysisResult struct {
	RiskFactors       []RiskFactor      `json:"risk_factors"`
	OverallAssessment string            `json:"overall_assessment"`
	SimplifiedText    string            `json:"simplified_text"`
	KeyPoints         []string          `json:"key_points"`
	JargonDefinitions map[string]string `json:"jargon_definitions"`
	Summary           string            `json:"summary"`
	RiskScore         int               `json:"risk_score"`
	AnalyzedAt        time.Time         `json:"analyzed_at"`
}

// Clone returns a deep copy so callers cannot mutate stored results.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	if r.RiskFactors != nil {
		out.RiskFactors = make([]RiskFactor, len(r.RiskFactors))
		for i, f := range r.RiskFactors {
			if f.Position != nil {
				p := *f.Position
				f.Position = &p
			}
			out.RiskFactors[i] = f
		}
	}
	if r.KeyPoints != nil {
		out.KeyPoints = append([]string(nil), r.KeyPoints...)
	}
	if r.JargonDefinitions != nil {
		out.JargonDefinitions = make(map[string]string, len(r.JargonDefinitions))
		for k, v := range r.JargonDefinitions {
			out.JargonDefinitions[k] = v
		}
	}
	return out
}

// QAExchange is one answered question. Never mutated after creation.
type QAExchange struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}
