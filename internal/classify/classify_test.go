package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/lexdoc/internal/domain"
)

func TestClassifyRental(t *testing.T) {
	c := New(nil, DefaultMinScore)
	text := "The lease is signed. The tenant pays. The landlord repairs. " +
		"This lease binds the tenant and the landlord."
	if got := c.Classify(text); got != domain.TypeRental {
		t.Fatalf("expected rental, got %q", got)
	}
}

func TestClassifyBelowThresholdIsOther(t *testing.T) {
	c := New(nil, DefaultMinScore)
	// Two loan keyword hits only.
	if got := c.Classify("The lender issued a loan."); got != domain.TypeOther {
		t.Fatalf("expected other, got %q", got)
	}
}

func TestClassifyCountsDistinctKeywords(t *testing.T) {
	c := New(nil, DefaultMinScore)
	tests := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{"repeated keyword", "SALARY salary Salary", domain.TypeOther},
		{"keyword inside other words", "The parent company reports current figures and apparent trends.", domain.TypeOther},
		{"one service keyword repeated", "Our current service is fine. The service runs daily. Service hours vary.", domain.TypeOther},
		{"distinct keywords, mixed case", "The EMPLOYER pays the Employee a salary.", domain.TypeEmployment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q (scores %v)", tt.text, got, tt.want, c.Scores(tt.text))
			}
		})
	}
}

func TestScoresCountEachKeywordOnce(t *testing.T) {
	scores := New(nil, DefaultMinScore).Scores("rent rent rent tenant tenant")
	// Five hits of two keywords.
	if scores[0] != 2 {
		t.Fatalf("expected rental score 2, got %v", scores)
	}
}

func TestClassifyTieGoesToFirstCategory(t *testing.T) {
	c := New(nil, DefaultMinScore)
	// Three rental keywords and three loan keywords; rental comes first in the table.
	text := "tenant lease landlord lender loan borrow"
	if got := c.Classify(text); got != domain.TypeRental {
		t.Fatalf("expected rental on tie, got %q", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil, DefaultMinScore)
	text := strings.Repeat("confidential proprietary information of the service provider. ", 3)
	first := c.Classify(text)
	for i := 0; i < 20; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("classification changed between calls: %q vs %q", first, got)
		}
	}
}

func TestClassifyEmptyText(t *testing.T) {
	if got := New(nil, DefaultMinScore).Classify(""); got != domain.TypeOther {
		t.Fatalf("expected other, got %q", got)
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	yml := `min_score: 0
categories:
  - type: loan
    keywords: [mortgage]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	table, minScore, err := LoadTable(path, DefaultMinScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minScore != 0 {
		t.Errorf("expected min score 0, got %d", minScore)
	}
	c := New(table, minScore)
	if got := c.Classify("A Mortgage."); got != domain.TypeLoan {
		t.Errorf("expected loan, got %q", got)
	}
}

func TestLoadTableRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - type: lease\n    keywords: [x]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadTable(path, DefaultMinScore); err == nil {
		t.Fatal("expected error for unknown document type")
	}
}
