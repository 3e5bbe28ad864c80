// Package pipeline runs the per-upload document flow (extract, classify,
// analyse, index) and serves question answering over the stored results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/lexdoc/internal/analyzer"
	"github.com/dgallion1/lexdoc/internal/annotate"
	"github.com/dgallion1/lexdoc/internal/domain"
	"github.com/dgallion1/lexdoc/internal/facts"
	"github.com/dgallion1/lexdoc/internal/index"
	"github.com/dgallion1/lexdoc/internal/metrics"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrExtraction    = errors.New("could not extract text from the document")
	ErrEmptyQuestion = errors.New("question is empty")
)

// Index metadata keys added by the pipeline.
const (
	MetaFilename     = "filename"
	MetaDocumentType = "document_type"
	MetaUploadDate   = "upload_date"
)

// RawDocument is an uploaded file. It is consumed once by Ingest.
type RawDocument struct {
	Filename string
	Data     []byte
}

type Extractor interface {
	Extract(data []byte, filename string) string
}

type Classifier interface {
	Classify(text string) domain.DocumentType
}

type Analyzer interface {
	Analyze(ctx context.Context, text string, docType domain.DocumentType) domain.AnalysisResult
	Answer(ctx context.Context, question, excerpts string, docType domain.DocumentType) string
}

type Index interface {
	Add(ctx context.Context, documentID, text string, metadata map[string]string) error
	Context(ctx context.Context, documentID, query string, maxChunks int) string
	FindSimilar(ctx context.Context, clause, excludeDocumentID string, k int) []index.Result
	Remove(ctx context.Context, documentID string) error
}

// Options tunes the pipeline.
type Options struct {
	// ContextChunks caps the chunks retrieved as grounding for a question.
	ContextChunks int
}

// Report is a document with its analysis and derived facts.
type Report struct {
	Document       domain.Document       `json:"document"`
	Analysis       domain.AnalysisResult `json:"analysis"`
	RiskLevel      domain.Severity       `json:"risk_level"`
	RiskColor      string                `json:"risk_color"`
	KeyDates       []facts.KeyDate       `json:"key_dates"`
	FinancialTerms facts.FinancialTerms  `json:"financial_terms"`
	Questions      int                   `json:"questions_asked"`
}

func newReport(s Session) Report {
	dates := facts.KeyDates(s.Document.Text)
	if dates == nil {
		dates = []facts.KeyDate{}
	}
	return Report{
		Document:       s.Document,
		Analysis:       s.Analysis,
		RiskLevel:      domain.RiskLevel(s.Analysis.RiskScore),
		RiskColor:      domain.RiskColor(s.Analysis.RiskScore),
		KeyDates:       dates,
		FinancialTerms: facts.ExtractFinancialTerms(s.Document.Text),
		Questions:      len(s.History),
	}
}

// Summary is a compact library listing entry.
type Summary struct {
	Document    domain.Document `json:"document"`
	RiskScore   int             `json:"risk_score"`
	RiskLevel   domain.Severity `json:"risk_level"`
	RiskFactors int             `json:"risk_factor_count"`
	Questions   int             `json:"questions_asked"`
}

type Pipeline struct {
	extractor  Extractor
	classifier Classifier
	analyzer   Analyzer
	index      Index
	library    *Library
	opts       Options
	log        *slog.Logger
	metrics    *metrics.Metrics

	now   func() time.Time
	newID func() string
}

func New(ex Extractor, cl Classifier, an Analyzer, ix Index, lib *Library, opts Options, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	if opts.ContextChunks <= 0 {
		opts.ContextChunks = index.DefaultContextLimit
	}
	if lib == nil {
		lib = NewLibrary()
	}
	return &Pipeline{
		extractor:  ex,
		classifier: cl,
		analyzer:   an,
		index:      ix,
		library:    lib,
		opts:       opts,
		log:        log.With("component", "pipeline"),
		metrics:    m,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Ingest runs the whole flow for one upload. Only an extraction failure or
// a cancelled context fails it; analysis and indexing degrade instead.
func (p *Pipeline) Ingest(ctx context.Context, raw RawDocument) (Report, error) {
	start := p.now()
	log := p.log.With("filename", raw.Filename, "bytes", len(raw.Data))

	text := p.extractor.Extract(raw.Data, raw.Filename)
	if strings.TrimSpace(text) == "" {
		log.Warn("extraction produced no text")
		return Report{}, fmt.Errorf("%s: %w", raw.Filename, ErrExtraction)
	}

	doc := domain.Document{
		ID:          p.newID(),
		Filename:    raw.Filename,
		Type:        p.classifier.Classify(text),
		Text:        text,
		ContentHash: ContentHashHex(raw.Data),
		SizeBytes:   len(raw.Data),
		UploadedAt:  start.UTC(),
		Stats:       domain.ComputeStats(text),
	}
	log = log.With("document_id", doc.ID, "document_type", doc.Type)
	log.Info("document extracted", "words", doc.Stats.WordCount)

	analysis := p.analyzer.Analyze(ctx, text, doc.Type)
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("ingest %s: %w", raw.Filename, err)
	}

	md := map[string]string{
		MetaFilename:     doc.Filename,
		MetaDocumentType: string(doc.Type),
		MetaUploadDate:   doc.UploadedAt.Format(time.RFC3339),
	}
	if err := p.index.Add(ctx, doc.ID, text, md); err != nil {
		log.Warn("indexing failed, questions will use the stored text", "error", err)
	}

	p.library.Put(doc, analysis)
	p.metrics.SetDocuments(p.library.Len())
	log.Info("document ingested",
		"risk_factors", len(analysis.RiskFactors),
		"risk_score", analysis.RiskScore,
		"duration_ms", p.now().Sub(start).Milliseconds())

	s, _ := p.library.Get(doc.ID)
	return newReport(s), nil
}

// Reanalyze replaces the stored analysis of id with a fresh one.
func (p *Pipeline) Reanalyze(ctx context.Context, id string) (Report, error) {
	s, ok := p.library.Get(id)
	if !ok {
		return Report{}, ErrNotFound
	}
	analysis := p.analyzer.Analyze(ctx, s.Document.Text, s.Document.Type)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if !p.library.SetAnalysis(id, analysis) {
		return Report{}, ErrNotFound
	}
	p.log.Info("document reanalysed", "document_id", id, "risk_score", analysis.RiskScore)
	s, _ = p.library.Get(id)
	return newReport(s), nil
}

// Ask answers question from the document's indexed chunks, falling back to
// the stored text when no chunk is relevant enough, and records the
// exchange.
func (p *Pipeline) Ask(ctx context.Context, id, question string) (domain.QAExchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.QAExchange{}, ErrEmptyQuestion
	}
	s, ok := p.library.Get(id)
	if !ok {
		return domain.QAExchange{}, ErrNotFound
	}

	excerpts := p.index.Context(ctx, id, question, p.opts.ContextChunks)
	if excerpts == "" {
		p.log.Debug("no relevant chunks, using document text", "document_id", id)
		excerpts = s.Document.Text
	}

	qa := domain.QAExchange{
		Question:  question,
		Answer:    p.analyzer.Answer(ctx, question, excerpts, s.Document.Type),
		Timestamp: p.now().UTC(),
	}
	if !p.library.AppendQA(id, qa) {
		return domain.QAExchange{}, ErrNotFound
	}
	return qa, nil
}

func (p *Pipeline) History(id string) ([]domain.QAExchange, error) {
	h, ok := p.library.History(id)
	if !ok {
		return nil, ErrNotFound
	}
	if h == nil {
		h = []domain.QAExchange{}
	}
	return h, nil
}

func (p *Pipeline) Get(id string) (Report, error) {
	s, ok := p.library.Get(id)
	if !ok {
		return Report{}, ErrNotFound
	}
	return newReport(s), nil
}

func (p *Pipeline) List() []Summary {
	sessions := p.library.List()
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Summary{
			Document:    s.Document,
			RiskScore:   s.Analysis.RiskScore,
			RiskLevel:   domain.RiskLevel(s.Analysis.RiskScore),
			RiskFactors: len(s.Analysis.RiskFactors),
			Questions:   len(s.History),
		})
	}
	return out
}

// Annotate renders the document text with its risk clauses and glossary
// terms highlighted.
func (p *Pipeline) Annotate(id string) (annotate.Result, error) {
	s, ok := p.library.Get(id)
	if !ok {
		return annotate.Result{}, ErrNotFound
	}
	return annotate.Annotate(s.Document.Text, s.Analysis.RiskFactors, s.Analysis.JargonDefinitions), nil
}

// SuggestedQuestions returns starter questions for the document's type.
func (p *Pipeline) SuggestedQuestions(id string) ([]string, error) {
	s, ok := p.library.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return analyzer.SuggestedQuestions(s.Document.Type), nil
}

// FindSimilar returns indexed chunks from other documents that resemble
// clause.
func (p *Pipeline) FindSimilar(ctx context.Context, clause, excludeDocumentID string, k int) []index.Result {
	if strings.TrimSpace(clause) == "" {
		return nil
	}
	return p.index.FindSimilar(ctx, clause, excludeDocumentID, k)
}

// Delete drops the document from the library and purges its index records.
// The index is purged even when the library has no such document; index
// failures are logged only.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	found := p.library.Delete(id)
	if err := p.index.Remove(ctx, id); err != nil {
		p.log.Warn("index purge failed", "document_id", id, "error", err)
	}
	p.metrics.SetDocuments(p.library.Len())
	if !found {
		return ErrNotFound
	}
	p.log.Info("document deleted", "document_id", id)
	return nil
}
