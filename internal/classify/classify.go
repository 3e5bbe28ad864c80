// Package classify assigns a document type by keyword counting.
package classify

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/lexdoc/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultMinScore is the count a category must exceed to win. Short or
// generic documents stay "other".
const DefaultMinScore = 2

// Category is one row of the keyword table.
type Category struct {
	Type     domain.DocumentType `yaml:"type"`
	Keywords []string            `yaml:"keywords"`
}

// DefaultTable is evaluated in order; the first maximal row wins ties.
var DefaultTable = []Category{
	{Type: domain.TypeRental, Keywords: []string{"lease", "rent", "tenant", "landlord", "property", "premises", "deposit"}},
	{Type: domain.TypeLoan, Keywords: []string{"loan", "borrow", "lender", "principal", "interest", "repayment", "credit"}},
	{Type: domain.TypeEmployment, Keywords: []string{"employment", "employee", "employer", "salary", "wages", "position", "job"}},
	{Type: domain.TypeNDA, Keywords: []string{"confidential", "non-disclosure", "proprietary", "trade secret"}},
	{Type: domain.TypeService, Keywords: []string{"service", "provider", "client", "deliverables", "scope of work"}},
}

// Classifier scores text against a keyword table. It holds no mutable state.
type Classifier struct {
	table    []Category
	minScore int
}

// New builds a classifier. A nil table selects DefaultTable; keywords are
// lowercased once here.
func New(table []Category, minScore int) *Classifier {
	if table == nil {
		table = DefaultTable
	}
	normalized := make([]Category, 0, len(table))
	for _, c := range table {
		kws := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		normalized = append(normalized, Category{Type: c.Type, Keywords: kws})
	}
	return &Classifier{table: normalized, minScore: minScore}
}

// Scores returns, per category in table order, how many distinct keywords
// of the category occur in text. Repeats of one keyword count once.
func (c *Classifier) Scores(text string) []int {
	lower := strings.ToLower(text)
	scores := make([]int, len(c.table))
	for i, cat := range c.table {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				scores[i]++
			}
		}
	}
	return scores
}

// Classify returns the category with the most distinct keywords present, or
// TypeOther when that count does not exceed the minimum score.
func (c *Classifier) Classify(text string) domain.DocumentType {
	best, bestScore := domain.TypeOther, 0
	for i, s := range c.Scores(text) {
		if s > bestScore {
			best, bestScore = c.table[i].Type, s
		}
	}
	if bestScore <= c.minScore {
		return domain.TypeOther
	}
	return best
}

type tableFile struct {
	MinScore   *int       `yaml:"min_score"`
	Categories []Category `yaml:"categories"`
}

// LoadTable reads a YAML keyword table. minScore is returned unchanged when
// the file does not set one.
func LoadTable(path string, minScore int) ([]Category, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read classifier table: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, 0, fmt.Errorf("parse classifier table: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, 0, fmt.Errorf("classifier table %s has no categories", path)
	}
	for _, cat := range f.Categories {
		if _, ok := domain.ParseDocumentType(string(cat.Type)); !ok {
			return nil, 0, fmt.Errorf("classifier table: unknown document type %q", cat.Type)
		}
	}
	if f.MinScore != nil {
		minScore = *f.MinScore
	}
	return f.Categories, minScore, nil
}
