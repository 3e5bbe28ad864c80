package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_BlocksInOrder(t *testing.T) {
	input := `# Lease Agreement

The **tenant** agrees to pay *rent* monthly.

## Deposit

- Two months' rent
- Refundable within 30 days

> Quoted clause.

` + "```\nraw block\n```\n"

	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader(input), "lease.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"Lease Agreement",
		"The tenant agrees to pay rent monthly.",
		"Deposit",
		"Two months' rent",
		"Refundable within 30 days",
		"Quoted clause.",
		"raw block",
	}
	if got != strings.Join(want, "\n\n") {
		t.Errorf("unexpected text:\n%q", got)
	}
}

func TestMarkdownParser_SoftBreaksKept(t *testing.T) {
	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader("line one\nline two\n"), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line one\nline two" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
