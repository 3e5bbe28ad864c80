// Package app assembles the service components from a Config. The HTTP
// server and the CLI share it.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/lexdoc/internal/analyzer"
	"github.com/dgallion1/lexdoc/internal/classify"
	"github.com/dgallion1/lexdoc/internal/config"
	"github.com/dgallion1/lexdoc/internal/index"
	"github.com/dgallion1/lexdoc/internal/llm"
	"github.com/dgallion1/lexdoc/internal/metrics"
	"github.com/dgallion1/lexdoc/internal/parser"
	"github.com/dgallion1/lexdoc/internal/pipeline"
)

// App holds the wired components.
type App struct {
	Config   config.Config
	Metrics  *metrics.Metrics
	Index    *index.Index
	Analyzer *analyzer.Analyzer
	Pipeline *pipeline.Pipeline

	// LLM tracks text generation calls; Embeddings tracks embedding calls.
	LLM        *llm.GuardedGenerator
	Embeddings *llm.Guard

	claude   *llm.ClaudeClient
	embedder *llm.OpenAIEmbedder
}

// Build opens the index store and wires every component. Callers own the
// returned App and must Close it.
func Build(cfg config.Config, log *slog.Logger) (*App, error) {
	cl, err := newClassifier(cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
	embedGuard := llm.NewGuard(llm.GuardConfig{Name: "embeddings"}, log, m)

	ix := index.New(store, llm.NewGuardedEmbedder(embedder, embedGuard), index.Options{
		Chunk:              cfg.Chunk(),
		RelevanceThreshold: cfg.RelevanceThreshold,
		EmbedTimeout:       cfg.EmbeddingTimeout,
		EmbedBatchSize:     cfg.EmbedBatchSize,
	}, log, m)

	claude := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	gen := llm.NewGuardedGenerator(claude, llm.NewGuard(llm.GuardConfig{
		Name:              "anthropic",
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log, m))

	an := analyzer.New(gen, analyzer.Config{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		CallTimeout: cfg.LLMTimeout,
	}, log, m)

	ex := parser.NewExtractor(log, parser.Options{
		TempDir:              os.TempDir(),
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
	})

	p := pipeline.New(ex, cl, an, ix, pipeline.NewLibrary(), pipeline.Options{
		ContextChunks: cfg.ContextChunks,
	}, log, m)

	log.Info("components ready",
		"index_backend", cfg.IndexBackend,
		"collection", cfg.IndexCollection,
		"model", claude.Model(),
		"embedding_model", cfg.EmbeddingModel)

	return &App{
		Config:     cfg,
		Metrics:    m,
		Index:      ix,
		Analyzer:   an,
		Pipeline:   p,
		LLM:        gen,
		Embeddings: embedGuard,
		claude:     claude,
		embedder:   embedder,
	}, nil
}

func openStore(cfg config.Config) (index.Store, error) {
	switch cfg.IndexBackend {
	case "memory":
		return index.NewMemoryStore(cfg.IndexCollection), nil
	case "sqlite", "":
		store, err := index.OpenSQLite(cfg.IndexPath, cfg.IndexCollection)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

func newClassifier(cfg config.Config, log *slog.Logger) (*classify.Classifier, error) {
	if cfg.ClassifierTable == "" {
		return classify.New(nil, cfg.ClassifyMinScore), nil
	}
	table, minScore, err := classify.LoadTable(cfg.ClassifierTable, cfg.ClassifyMinScore)
	if err != nil {
		return nil, err
	}
	log.Info("classifier table loaded", "path", cfg.ClassifierTable, "categories", len(table))
	return classify.New(table, minScore), nil
}

// Close releases the index store and idle HTTP connections.
func (a *App) Close() error {
	a.claude.Close()
	a.embedder.Close()
	return a.Index.Close()
}
