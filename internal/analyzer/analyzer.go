// Package analyzer turns document text into risk factors, a plain-language
// rewrite, a summary and question answers by prompting an LLM. Every
// operation degrades to a fixed default instead of returning an error.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/lexdoc/internal/domain"
	"github.com/dgallion1/lexdoc/internal/llm"
	"github.com/dgallion1/lexdoc/internal/metrics"
)

// Operation names used for stats, metrics and logs.
const (
	OpRisk     = "risk_analysis"
	OpSimplify = "simplify"
	OpSummary  = "summary"
	OpAnswer   = "qa"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// Config bounds the prompts and generation calls.
type Config struct {
	Temperature    float64
	MaxTokens      int
	CallTimeout    time.Duration
	RiskInputLimit int // bytes of document text sent with the risk prompt
	TextInputLimit int // bytes sent with the simplify, summary and answer prompts
}

func DefaultConfig() Config {
	return Config{
		Temperature:    0.2,
		MaxTokens:      2048,
		CallTimeout:    60 * time.Second,
		RiskInputLimit: 4000,
		TextInputLimit: 3000,
	}
}

// RiskReport is the output of AnalyzeRisk.
type RiskReport struct {
	Factors           []domain.RiskFactor
	OverallAssessment string
}

// Simplification is the output of Simplify.
type Simplification struct {
	Text      string
	KeyPoints []string
	Jargon    map[string]string
}

type Analyzer struct {
	gen     Generator
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(gen Generator, cfg Config, log *slog.Logger, m *metrics.Metrics) *Analyzer {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.RiskInputLimit <= 0 {
		cfg.RiskInputLimit = def.RiskInputLimit
	}
	if cfg.TextInputLimit <= 0 {
		cfg.TextInputLimit = def.TextInputLimit
	}
	return &Analyzer{
		gen:     gen,
		cfg:     cfg,
		log:     log.With("component", "analyzer"),
		metrics: m,
		now:     time.Now,
	}
}

// Analyze runs risk analysis, simplification and summary in sequence and
// assembles a complete result.
func (a *Analyzer) Analyze(ctx context.Context, text string, docType domain.DocumentType) domain.AnalysisResult {
	risk := a.AnalyzeRisk(ctx, text, docType)
	simple := a.Simplify(ctx, text, docType)
	summary := a.Summarize(ctx, text, docType)

	return domain.AnalysisResult{
		RiskFactors:       risk.Factors,
		OverallAssessment: risk.OverallAssessment,
		SimplifiedText:    simple.Text,
		KeyPoints:         simple.KeyPoints,
		JargonDefinitions: simple.Jargon,
		Summary:           summary,
		RiskScore:         domain.RiskScore(risk.Factors),
		AnalyzedAt:        a.now().UTC(),
	}
}

// AnalyzeRisk extracts risk factors from a bounded prefix of text. Factor
// positions are resolved against the full text.
func (a *Analyzer) AnalyzeRisk(ctx context.Context, text string, docType domain.DocumentType) RiskReport {
	raw, err := a.generate(ctx, OpRisk, buildRiskPrompt(clip(text, a.cfg.RiskInputLimit), docType))
	if err != nil {
		a.degraded(OpRisk, err)
		return RiskReport{Factors: []domain.RiskFactor{}, OverallAssessment: AssessmentFailed}
	}

	parser := StructuredParser[riskWire]{Salvage: salvageRisk}
	wire, outcome, perr := parser.Parse(raw)
	if outcome == OutcomeSalvaged {
		a.salvaged(OpRisk, perr, raw)
	}

	report := RiskReport{OverallAssessment: AssessmentDefault, Factors: []domain.RiskFactor{}}
	if s, ok := decodeString(wire.OverallAssessment); ok {
		report.OverallAssessment = s
	}
	if len(wire.RiskFactors) > 0 {
		var items []json.RawMessage
		if err := json.Unmarshal(wire.RiskFactors, &items); err != nil {
			a.log.Warn("risk_factors is not a list", "error", err)
		} else {
			report.Factors = a.buildFactors(items, text)
		}
	}
	return report
}

func (a *Analyzer) buildFactors(items []json.RawMessage, text string) []domain.RiskFactor {
	factors := make([]domain.RiskFactor, 0, len(items))
	for i, item := range items {
		var w factorWire
		if err := json.Unmarshal(item, &w); err != nil {
			a.log.Warn("skip risk factor", "index", i, "error", err)
			continue
		}
		f, ok := toFactor(w)
		if !ok {
			a.log.Warn("skip risk factor", "index", i, "category", w.Category, "severity", w.Severity)
			continue
		}
		f.ID = fmt.Sprintf("risk_%d", len(factors)+1)
		if f.ClauseText != "" {
			if start := strings.Index(text, f.ClauseText); start >= 0 {
				f.Position = &domain.ClausePosition{Start: start, End: start + len(f.ClauseText)}
			}
		}
		factors = append(factors, f)
	}
	return factors
}

// toFactor validates enum values. Missing ones default to standard/low;
// unknown ones reject the factor.
func toFactor(w factorWire) (domain.RiskFactor, bool) {
	category := domain.CategoryStandard
	if strings.TrimSpace(w.Category) != "" {
		c, ok := domain.ParseRiskCategory(w.Category)
		if !ok {
			return domain.RiskFactor{}, false
		}
		category = c
	}
	severity := domain.SeverityLow
	if strings.TrimSpace(w.Severity) != "" {
		s, ok := domain.ParseSeverity(w.Severity)
		if !ok {
			return domain.RiskFactor{}, false
		}
		severity = s
	}
	return domain.RiskFactor{
		ClauseText:  w.ClauseText,
		Category:    category,
		Severity:    severity,
		Explanation: w.Explanation,
		Suggestion:  w.Suggestion,
	}, true
}

// Simplify rewrites a bounded prefix of text in plain language.
func (a *Analyzer) Simplify(ctx context.Context, text string, docType domain.DocumentType) Simplification {
	raw, err := a.generate(ctx, OpSimplify, buildSimplifyPrompt(clip(text, a.cfg.TextInputLimit), docType))
	if err != nil {
		a.degraded(OpSimplify, err)
		return Simplification{
			Text:      clip(text, previewLen) + "...",
			KeyPoints: []string{KeyPointSimplifyFailed},
			Jargon:    map[string]string{},
		}
	}

	parser := StructuredParser[simplifyWire]{Salvage: func(raw string) simplifyWire {
		return salvageSimplify(raw, text)
	}}
	wire, outcome, perr := parser.Parse(raw)
	if outcome == OutcomeSalvaged {
		a.salvaged(OpSimplify, perr, raw)
	}

	out := Simplification{Jargon: decodeStringMap(wire.JargonDefinitions)}
	if t, ok := decodeString(wire.SimplifiedText); ok {
		out.Text = t
	} else {
		out.Text = clip(text, previewLen) + "..."
	}
	if points, ok := decodeStrings(wire.KeyPoints); ok {
		out.KeyPoints = points
	} else {
		out.KeyPoints = []string{KeyPointMissing}
	}
	return out
}

// Summarize returns a short plain-text summary.
func (a *Analyzer) Summarize(ctx context.Context, text string, docType domain.DocumentType) string {
	raw, err := a.generate(ctx, OpSummary, buildSummaryPrompt(clip(text, a.cfg.TextInputLimit), docType))
	if err == nil {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			err = fmt.Errorf("empty summary")
		}
	}
	if err != nil {
		a.degraded(OpSummary, err)
		return SummaryFailed
	}
	return raw
}

// Answer responds to question from grounding excerpts of the document.
// Empty excerpts answers AnswerNotFound without calling the model.
func (a *Analyzer) Answer(ctx context.Context, question, excerpts string, docType domain.DocumentType) string {
	excerpts = strings.TrimSpace(excerpts)
	if excerpts == "" {
		a.metrics.Fallback(OpAnswer, "default")
		return AnswerNotFound
	}
	raw, err := a.generate(ctx, OpAnswer, buildAnswerPrompt(strings.TrimSpace(question), clip(excerpts, a.cfg.TextInputLimit), docType))
	if err == nil {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			err = fmt.Errorf("empty answer")
		}
	}
	if err != nil {
		a.degraded(OpAnswer, err)
		return AnswerFailed
	}
	return raw
}

func (a *Analyzer) generate(ctx context.Context, op, prompt string) (out string, err error) {
	if a.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("generator panic: %v", r)
		}
	}()
	return a.gen.Generate(ctx, prompt, llm.GenerateOptions{
		Operation:   op,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
}

func (a *Analyzer) degraded(op string, err error) {
	a.log.Error("llm call failed, using default", "operation", op, "error", err)
	a.metrics.Fallback(op, "default")
}

func (a *Analyzer) salvaged(op string, err error, raw string) {
	a.log.Warn("structured parse failed, salvaging", "operation", op, "error", err, "raw", clip(raw, previewLen))
	a.metrics.Fallback(op, "salvage")
}
