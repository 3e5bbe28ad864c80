package annotate

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/dgallion1/lexdoc/internal/domain"
)

const lease = "The Tenant shall pay a late fee of $100 per day. The Landlord may enter the premises at any time. " +
	"The tenant waives all claims against the landlord."

func TestAnnotateRiskSpan(t *testing.T) {
	factors := []domain.RiskFactor{{
		ClauseText:  "  The Landlord may enter the premises at any time  ",
		Severity:    domain.SeverityHigh,
		Explanation: `No "notice" <required>`,
		Suggestion:  "Ask for 24h notice",
	}}
	res := Annotate(lease, factors, nil)
	if len(res.Spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(res.Spans))
	}
	s := res.Spans[0]
	if lease[s.Start:s.End] != "The Landlord may enter the premises at any time" {
		t.Errorf("span covers %q", lease[s.Start:s.End])
	}
	if s.Kind != KindRisk || s.Label != "high" {
		t.Errorf("unexpected span: %+v", s)
	}
	if s.Tooltip != "Risk: HIGH\nNo \"notice\" <required>\nSuggestion: Ask for 24h notice" {
		t.Errorf("tooltip = %q", s.Tooltip)
	}
	if !strings.Contains(res.Markup, `<span class="tooltip risk-high" title="Risk: HIGH`) {
		t.Errorf("markup missing risk span: %s", res.Markup)
	}
	if strings.Contains(res.Markup, "<required>") {
		t.Error("tooltip content must be escaped")
	}
	if got := PlainText(res.Markup); got != lease {
		t.Errorf("plain text changed:\n%q\n%q", got, lease)
	}
}

func TestAnnotateRiskPriority(t *testing.T) {
	factors := []domain.RiskFactor{
		{ClauseText: "pay a late fee", Severity: domain.SeverityLow},
		{ClauseText: "The Tenant shall pay a late fee of $100", Severity: domain.SeverityCritical},
		{ClauseText: "not present anywhere", Severity: domain.SeverityCritical},
		{ClauseText: "", Severity: domain.SeverityCritical},
	}
	spans := Spans(lease, factors, nil)
	if len(spans) != 1 || spans[0].Label != "critical" {
		t.Fatalf("expected only the critical span, got %+v", spans)
	}
}

func TestAnnotateClauseCap(t *testing.T) {
	text := strings.Repeat("word ", 60)
	spans := Spans(text, []domain.RiskFactor{{ClauseText: text, Severity: domain.SeverityMedium}}, nil)
	if len(spans) != 1 || spans[0].End-spans[0].Start != maxClauseLen {
		t.Fatalf("expected a %d byte span, got %+v", maxClauseLen, spans)
	}
}

func TestAnnotateJargon(t *testing.T) {
	jargon := map[string]string{
		"tenant": "the renter",
		"pay":    "", // no definition
		"at":     "too short",
	}
	spans := Spans(lease, nil, jargon)
	if len(spans) != 2 {
		t.Fatalf("expected both tenant occurrences, got %+v", spans)
	}
	for _, s := range spans {
		if !strings.EqualFold(lease[s.Start:s.End], "tenant") || s.Kind != KindJargon {
			t.Errorf("unexpected span %+v", s)
		}
		if s.Tooltip != "tenant: the renter" {
			t.Errorf("tooltip = %q", s.Tooltip)
		}
	}
}

func TestAnnotateJargonWholeWord(t *testing.T) {
	text := "Rental rent rented rent."
	spans := Spans(text, nil, map[string]string{"rent": "payment"})
	if len(spans) != 2 || spans[0].Start != 7 || spans[1].Start != 19 {
		t.Errorf("unexpected spans %+v", spans)
	}
}

func TestAnnotateJargonSkipsRiskSpans(t *testing.T) {
	factors := []domain.RiskFactor{{ClauseText: "The Tenant shall pay", Severity: domain.SeverityMedium}}
	spans := Spans(lease, factors, map[string]string{"tenant": "the renter"})
	if len(spans) != 2 {
		t.Fatalf("expected risk span plus one jargon span, got %+v", spans)
	}
	if spans[0].Kind != KindRisk || spans[1].Kind != KindJargon || spans[1].Start < spans[0].End {
		t.Errorf("jargon must not land inside the risk span: %+v", spans)
	}
}

func TestAnnotateJargonLimitFromEnd(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("lessee ", 8))
	spans := Spans(text, nil, map[string]string{"lessee": "tenant"})
	if len(spans) != maxJargonSpans {
		t.Fatalf("expected %d spans, got %d", maxJargonSpans, len(spans))
	}
	if spans[len(spans)-1].End != len(text) {
		t.Error("the last occurrences should be annotated first")
	}
	if spans[0].Start != 3*len("lessee ") {
		t.Errorf("first kept span starts at %d", spans[0].Start)
	}
}

func TestPlainTextRoundTrip(t *testing.T) {
	texts := []string{
		"",
		"plain",
		"a < b && c > d \"quoted\" 'single'",
		"line one\r\nline two\rline three\n",
		"&amp; &copy &#169; literal entities",
		"<script>alert(1)</script> <b>bold</b>",
		"Ünïcödé ‘quotes’ — dash\ttab",
	}
	for i, text := range texts {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			res := Annotate(text, []domain.RiskFactor{{ClauseText: "b", Severity: domain.SeverityLow}}, map[string]string{"line": "row"})
			if got := PlainText(res.Markup); got != text {
				t.Errorf("round trip mismatch:\n got %q\nwant %q", got, text)
			}
		})
	}
}

func TestSpansNeverOverlap(t *testing.T) {
	words := []string{"rent", "deposit", "tenant", "fee", "late", "notice", "the", "landlord", "<", "&", "."}
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var sb strings.Builder
		for i := 0; i < 40; i++ {
			sb.WriteString(words[rng.Intn(len(words))])
			sb.WriteByte(' ')
		}
		text := sb.String()

		var factors []domain.RiskFactor
		for i := 0; i < 4; i++ {
			a := rng.Intn(len(text))
			b := a + rng.Intn(len(text)-a+1)
			factors = append(factors, domain.RiskFactor{ClauseText: text[a:b], Severity: domain.SeverityMedium})
		}
		jargon := map[string]string{"rent": "money", "tenant": "renter", "late fee": "penalty", "notice": "warning"}

		res := Annotate(text, factors, jargon)
		for i := 1; i < len(res.Spans); i++ {
			if res.Spans[i-1].End > res.Spans[i].Start {
				t.Fatalf("iteration %d: spans overlap: %+v %+v", iter, res.Spans[i-1], res.Spans[i])
			}
		}
		if got := PlainText(res.Markup); got != text {
			t.Fatalf("iteration %d: visible text changed", iter)
		}
		if n := strings.Count(res.Markup, "<span"); n != len(res.Spans) || n != strings.Count(res.Markup, "</span>") {
			t.Fatalf("iteration %d: unbalanced markup", iter)
		}
	}
}
