package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "LEXDOC_API_KEY", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
	"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "LLM_TIMEOUT", "INDEX_BACKEND", "INDEX_PATH",
	"RELEVANCE_THRESHOLD", "CHUNK_SIZE", "CHUNK_OVERLAP", "CLASSIFIER_TABLE",
	"MAX_UPLOAD_BYTES", "PDF_FALLBACK_PDFTOTEXT", "CONTEXT_CHUNKS", "EMBEDDING_BATCH_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8090" || cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RelevanceThreshold != 0.8 || cfg.ContextChunks != 5 || cfg.IndexCollection != "legal_documents" {
		t.Errorf("unexpected index defaults: %+v", cfg)
	}
	if cfg.EmbedBatchSize != 128 {
		t.Errorf("embed batch size = %d", cfg.EmbedBatchSize)
	}
	if cfg.MaxUploadBytes != 10485760 || !cfg.PDFFallbackPdftotext {
		t.Errorf("unexpected upload defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("INDEX_BACKEND", "MEMORY")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "0")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.LLMTimeout != 5*time.Second || cfg.IndexBackend != "memory" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 0 || cfg.PDFFallbackPdftotext {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.LLMMaxTokens != 2048 {
		t.Errorf("unparseable value should keep the default, got %d", cfg.LLMMaxTokens)
	}
}

func TestLoadRestoresNonPositive(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "-1")
	t.Setenv("RELEVANCE_THRESHOLD", "0")
	t.Setenv("MAX_UPLOAD_BYTES", "0")
	t.Setenv("EMBEDDING_BATCH_SIZE", "-5")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChunkSize != 1000 || cfg.RelevanceThreshold != 0.8 || cfg.MaxUploadBytes != 10485760 || cfg.EmbedBatchSize != 128 {
		t.Errorf("defaults not restored: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lexdoc.yaml")
	body := `
llm:
  model: claude-test
  timeout: 90s
index:
  backend: memory
  context_chunks: 3
chunker:
  size: 800
  overlap: 100
classifier:
  min_score: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHUNK_OVERLAP", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AnthropicModel != "claude-test" || cfg.LLMTimeout != 90*time.Second {
		t.Errorf("llm section not applied: %+v", cfg)
	}
	if cfg.IndexBackend != "memory" || cfg.ContextChunks != 3 || cfg.ClassifyMinScore != 3 {
		t.Errorf("index/classifier sections not applied: %+v", cfg)
	}
	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 50 {
		t.Errorf("env should win over file: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.IndexPath != "./data/lexdoc.db" {
		t.Errorf("absent keys must keep defaults, got %q", cfg.IndexPath)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "llm.timeout") {
		t.Errorf("expected llm.timeout error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	cfg.AnthropicAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.ChunkOverlap = bad.ChunkSize
	if err := bad.Validate(); err == nil {
		t.Error("overlap equal to size should be rejected")
	}

	bad = cfg
	bad.IndexBackend = "chroma"
	if err := bad.Validate(); err == nil {
		t.Error("unknown backend should be rejected")
	}

	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "LEXDOC_API_KEY") {
		t.Errorf("expected server key error, got %v", err)
	}
	cfg.LexdocAPIKey = "k"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("valid server config rejected: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
