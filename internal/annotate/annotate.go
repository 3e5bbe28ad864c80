// Package annotate overlays risk clauses and glossary terms onto document
// text as HTML spans. Candidate spans are chosen by an interval-scheduling
// pass over the original text, so accepted spans never overlap and the
// visible text of the markup equals the input.
package annotate

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/lexdoc/internal/domain"
	"golang.org/x/net/html"
)

// Kind distinguishes risk spans from glossary spans.
type Kind string

const (
	KindRisk   Kind = "risk"
	KindJargon Kind = "jargon"
)

const (
	maxClauseLen     = 150
	maxExplainLen    = 200
	maxDefinitionLen = 150
	minTermLen       = 3
	maxJargonSpans   = 5
)

// Span is one annotation over text[Start:End]. Label is the severity for
// risk spans and the glossary term for jargon spans.
type Span struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Kind    Kind   `json:"kind"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Result is rendered markup plus the spans it contains, in text order.
type Result struct {
	Markup string `json:"markup"`
	Spans  []Span `json:"spans"`
}

// Annotate selects spans and renders them.
func Annotate(text string, factors []domain.RiskFactor, jargon map[string]string) Result {
	spans := Spans(text, factors, jargon)
	return Result{Markup: Render(text, spans), Spans: spans}
}

// Spans picks non-overlapping spans. Risk spans are placed first, highest
// severity first and then in factor order. Jargon spans fill what is left,
// scanning from the end of the text, at most five of them.
func Spans(text string, factors []domain.RiskFactor, jargon map[string]string) []Span {
	var accepted []Span
	free := func(c Span) bool {
		for _, a := range accepted {
			if a.overlaps(c) {
				return false
			}
		}
		return true
	}

	risks := riskCandidates(text, factors)
	slices.SortStableFunc(risks, func(a, b Span) int {
		return cmp.Compare(domain.Severity(b.Label).Rank(), domain.Severity(a.Label).Rank())
	})
	for _, c := range risks {
		if free(c) {
			accepted = append(accepted, c)
		}
	}

	terms := jargonCandidates(text, jargon)
	slices.SortFunc(terms, func(a, b Span) int {
		if c := cmp.Compare(b.Start, a.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(b.End, a.End); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	placed := 0
	for _, c := range terms {
		if placed == maxJargonSpans {
			break
		}
		if free(c) {
			accepted = append(accepted, c)
			placed++
		}
	}

	slices.SortFunc(accepted, func(a, b Span) int { return cmp.Compare(a.Start, b.Start) })
	return accepted
}

func riskCandidates(text string, factors []domain.RiskFactor) []Span {
	var out []Span
	for _, f := range factors {
		clause := clip(strings.TrimSpace(f.ClauseText), maxClauseLen)
		if clause == "" {
			continue
		}
		start := strings.Index(text, clause)
		if start < 0 {
			continue
		}
		severity := f.Severity
		if severity.Rank() == 0 {
			severity = domain.SeverityLow
		}
		tooltip := "Risk: " + strings.ToUpper(string(severity))
		if e := strings.TrimSpace(clip(f.Explanation, maxExplainLen)); e != "" {
			tooltip += "\n" + e
		}
		if s := strings.TrimSpace(clip(f.Suggestion, maxExplainLen)); s != "" {
			tooltip += "\nSuggestion: " + s
		}
		out = append(out, Span{
			Start:   start,
			End:     start + len(clause),
			Kind:    KindRisk,
			Label:   string(severity),
			Tooltip: tooltip,
		})
	}
	return out
}

func jargonCandidates(text string, jargon map[string]string) []Span {
	var out []Span
	for term, def := range jargon {
		term = strings.TrimSpace(term)
		def = strings.TrimSpace(def)
		if utf8.RuneCountInString(term) < minTermLen || def == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
		if err != nil {
			continue
		}
		tooltip := term + ": " + clip(def, maxDefinitionLen)
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if !wholeWord(text, loc[0], loc[1]) {
				continue
			}
			out = append(out, Span{Start: loc[0], End: loc[1], Kind: KindJargon, Label: term, Tooltip: tooltip})
		}
	}
	return out
}

// wholeWord reports whether text[start:end] is not glued to a neighbouring
// letter, digit or underscore.
func wholeWord(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Render writes text as escaped HTML with each span wrapped in a tooltip
// element. spans must be sorted and non-overlapping, as Spans returns them.
func Render(text string, spans []Span) string {
	var sb strings.Builder
	sb.Grow(len(text) + len(spans)*96)
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(text) || s.Start >= s.End {
			continue
		}
		sb.WriteString(html.EscapeString(text[pos:s.Start]))
		fmt.Fprintf(&sb, `<span class="%s" title="%s">%s</span>`,
			html.EscapeString(class(s)), html.EscapeString(s.Tooltip), html.EscapeString(text[s.Start:s.End]))
		pos = s.End
	}
	sb.WriteString(html.EscapeString(text[pos:]))
	return sb.String()
}

func class(s Span) string {
	if s.Kind == KindRisk {
		return "tooltip risk-" + s.Label
	}
	return "tooltip jargon-term"
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
