// Package facts pulls dates and money terms out of document text with
// regular expressions. Results are informational and never block analysis.
package facts

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// contextRadius is how many bytes of surrounding text a KeyDate carries.
const contextRadius = 50

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`),
}

var (
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`₹[\d,]+(?:\.\d{2})?`),
		regexp.MustCompile(`Rs\.?\s*[\d,]+(?:\.\d{2})?`),
		regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`),
	}
	percentRe  = regexp.MustCompile(`\d+(?:\.\d+)?%`)
	interestRe = regexp.MustCompile(`(?i)(?:interest rate|APR|annual percentage rate).*?(\d+(?:\.\d+)?%)`)
)

// KeyDate is a date mention with its byte offset and nearby text.
type KeyDate struct {
	Date     string `json:"date"`
	Position int    `json:"position"`
	Context  string `json:"context"`
}

// KeyDates returns date mentions ordered by position. A span matched by more
// than one pattern is reported once.
func KeyDates(text string) []KeyDate {
	type hit struct{ start, end int }
	var hits []hit
	for _, re := range datePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{loc[0], loc[1]})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})

	var out []KeyDate
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		lastEnd = h.end
		out = append(out, KeyDate{
			Date:     text[h.start:h.end],
			Position: h.start,
			Context:  strings.TrimSpace(window(text, h.start-contextRadius, h.end+contextRadius)),
		})
	}
	return out
}

// FinancialTerms groups money related mentions found in a document.
type FinancialTerms struct {
	Amounts       []string `json:"amounts,omitempty"`
	Percentages   []string `json:"percentages,omitempty"`
	InterestRates []string `json:"interest_rates,omitempty"`
}

// Empty reports whether nothing was found.
func (f FinancialTerms) Empty() bool {
	return len(f.Amounts) == 0 && len(f.Percentages) == 0 && len(f.InterestRates) == 0
}

// ExtractFinancialTerms finds currency amounts, percentages and interest rates.
func ExtractFinancialTerms(text string) FinancialTerms {
	var ft FinancialTerms
	for _, re := range amountPatterns {
		ft.Amounts = append(ft.Amounts, re.FindAllString(text, -1)...)
	}
	ft.Percentages = percentRe.FindAllString(text, -1)
	for _, m := range interestRe.FindAllStringSubmatch(text, -1) {
		ft.InterestRates = append(ft.InterestRates, m[1])
	}
	return ft
}

// window slices text[start:end] after clamping and snapping both ends to
// rune boundaries.
func window(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}
