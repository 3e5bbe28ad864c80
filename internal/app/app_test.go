package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/lexdoc/internal/config"
	"github.com/dgallion1/lexdoc/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.AnthropicAPIKey = "sk-test"
	cfg.LexdocAPIKey = "k"
	cfg.IndexBackend = "memory"
	return cfg
}

func TestBuildMemoryBackend(t *testing.T) {
	a, err := Build(testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	stats, err := a.Index.Stats(context.Background())
	if err != nil || stats.Location != "memory" || stats.Collection != "legal_documents" {
		t.Errorf("unexpected index stats %+v, %v", stats, err)
	}

	rec := httptest.NewRecorder()
	a.Handler(testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
}

func TestBuildSQLiteBackend(t *testing.T) {
	cfg := testConfig()
	cfg.IndexBackend = "sqlite"
	cfg.IndexPath = filepath.Join(t.TempDir(), "nested", "lexdoc.db")

	a, err := Build(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.IndexPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestBuildRejectsBadInputs(t *testing.T) {
	cfg := testConfig()
	cfg.IndexBackend = "chroma"
	if _, err := Build(cfg, testLogger()); err == nil {
		t.Error("expected unknown backend error")
	}

	cfg = testConfig()
	cfg.ClassifierTable = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Build(cfg, testLogger()); err == nil {
		t.Error("expected classifier table error")
	}
}

func TestBuildCustomClassifierTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	table := `
min_score: 0
categories:
  - type: nda
    keywords: [secret]
`
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.ClassifierTable = path
	// Unreachable services: analysis degrades, indexing fails and is logged.
	cfg.AnthropicBaseURL = "http://127.0.0.1:1"
	cfg.EmbeddingBaseURL = "http://127.0.0.1:1"

	a, err := Build(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	report, err := a.Pipeline.Ingest(context.Background(), pipeline.RawDocument{
		Filename: "note.txt",
		Data:     []byte("Keep this secret."),
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Document.Type != "nda" {
		t.Errorf("type = %q, want nda", report.Document.Type)
	}
}
