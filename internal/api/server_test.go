package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/lexdoc/internal/classify"
	"github.com/dgallion1/lexdoc/internal/config"
	"github.com/dgallion1/lexdoc/internal/domain"
	"github.com/dgallion1/lexdoc/internal/index"
	"github.com/dgallion1/lexdoc/internal/llm"
	"github.com/dgallion1/lexdoc/internal/metrics"
	"github.com/dgallion1/lexdoc/internal/parser"
	"github.com/dgallion1/lexdoc/internal/pipeline"
)

const testKey = "secret"

const leaseText = "RESIDENTIAL LEASE. The tenant shall pay rent monthly to the landlord. " +
	"A late fee of $100 per day applies. The security deposit is non-refundable. " +
	"The landlord may enter the premises without notice."

var vocab = []string{"rent", "deposit", "fee", "landlord", "notice", "salary"}

type bagEmbedder struct{}

func (bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(vocab))
		for j, w := range vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		out[i] = v
	}
	return out, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, string, domain.DocumentType) domain.AnalysisResult {
	factors := []domain.RiskFactor{{
		ID:          "risk_1",
		ClauseText:  "The security deposit is non-refundable",
		Category:    domain.CategoryFinancial,
		Severity:    domain.SeverityHigh,
		Explanation: "deposit is lost",
	}}
	return domain.AnalysisResult{
		RiskFactors:       factors,
		OverallAssessment: "one high risk",
		Summary:           "a lease",
		JargonDefinitions: map[string]string{"tenant": "the renter"},
		RiskScore:         domain.RiskScore(factors),
	}
}

func (stubAnalyzer) Answer(_ context.Context, question, _ string, _ domain.DocumentType) string {
	return "answer: " + question
}

type failingStats struct{}

func (failingStats) Stats(context.Context) (index.Stats, error) {
	return index.Stats{}, errors.New("store offline")
}

func newTestServer(t *testing.T) (*Server, *index.Index) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	ix := index.New(index.NewMemoryStore("test"), bagEmbedder{}, index.Options{}, log, m)
	p := pipeline.New(
		parser.NewExtractor(log, parser.Options{TempDir: t.TempDir()}),
		classify.New(nil, classify.DefaultMinScore),
		stubAnalyzer{}, ix, nil, pipeline.Options{}, log, m)

	stats := llm.NewLLMStats(0)
	stats.RecordCall("risk_analysis", 120, nil)

	cfg := config.Defaults()
	cfg.LexdocAPIKey = testKey
	cfg.MaxUploadBytes = 4096
	return NewServer(Deps{
		Pipeline: p,
		Index:    ix,
		LLM:      stats,
		Metrics:  m,
		Model:    "test-model",
	}, log, cfg), ix
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return do(t, h, http.MethodPost, "/api/documents", &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, auth := range []string{"", "Bearer wrong", "Basic " + testKey} {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: status %d", auth, rec.Code)
		}
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv, ix := newTestServer(t)

	rec := upload(t, srv, "../lease.txt", []byte(leaseText))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	report := decode[pipeline.Report](t, rec)
	id := report.Document.ID
	if report.Document.Filename != "lease.txt" || report.Document.Type != domain.TypeRental {
		t.Errorf("unexpected document: %+v", report.Document)
	}
	if report.RiskLevel != domain.SeverityLow || len(report.Analysis.RiskFactors) != 1 {
		t.Errorf("unexpected analysis: %+v", report)
	}

	rec = do(t, srv, http.MethodGet, "/api/documents", nil, "")
	list := decode[struct {
		Documents []pipeline.Summary `json:"documents"`
	}](t, rec)
	if len(list.Documents) != 1 || list.Documents[0].Document.ID != id {
		t.Errorf("list: %+v", list)
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get: %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/documents/"+id+"/questions",
		strings.NewReader(`{"question":"Is the deposit refundable?"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: %d %s", rec.Code, rec.Body.String())
	}
	qa := decode[domain.QAExchange](t, rec)
	if qa.Answer != "answer: Is the deposit refundable?" {
		t.Errorf("answer = %q", qa.Answer)
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/questions", nil, "")
	hist := decode[struct {
		History []domain.QAExchange `json:"history"`
	}](t, rec)
	if len(hist.History) != 1 {
		t.Errorf("history: %+v", hist)
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/annotated?format=html", nil, "")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") ||
		!strings.Contains(rec.Body.String(), `class="tooltip risk-high"`) {
		t.Errorf("annotated html: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/annotated?format=text", nil, "")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") || rec.Body.String() != leaseText {
		t.Errorf("annotated text: %q", rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/suggested-questions", nil, "")
	sq := decode[struct {
		Questions []string `json:"questions"`
	}](t, rec)
	if len(sq.Questions) == 0 {
		t.Error("expected suggested questions")
	}

	rec = do(t, srv, http.MethodPost, "/api/documents/"+id+"/analyze", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("reanalyze: %d", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/api/documents/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete: %d", rec.Code)
	}
	stats, err := ix.Stats(context.Background())
	if err != nil || stats.TotalRecords != 0 {
		t.Errorf("index not purged: %+v %v", stats, err)
	}
	rec = do(t, srv, http.MethodGet, "/api/documents/"+id, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := upload(t, srv, "lease.exe", []byte(leaseText)); rec.Code != http.StatusUnprocessableEntity ||
		!strings.Contains(rec.Body.String(), ".exe") {
		t.Errorf("unsupported type: %d %s", rec.Code, rec.Body.String())
	}
	if rec := upload(t, srv, "big.txt", bytes.Repeat([]byte("a"), 5000)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversize: %d", rec.Code)
	}
	if rec := upload(t, srv, "blank.txt", []byte("   \n\t ")); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty extraction: %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/documents", strings.NewReader("x"), "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart: %d", rec.Code)
	}
}

func TestAskErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := upload(t, srv, "lease.txt", []byte(leaseText))
	id := decode[pipeline.Report](t, rec).Document.ID

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad json", "/api/documents/" + id + "/questions", `{`, http.StatusBadRequest},
		{"empty question", "/api/documents/" + id + "/questions", `{"question":"  "}`, http.StatusBadRequest},
		{"unknown document", "/api/documents/nope/questions", `{"question":"why?"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tc.path, strings.NewReader(tc.body), "application/json")
			if rec.Code != tc.want {
				t.Errorf("status %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestSimilarClauses(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := upload(t, srv, "lease.txt", []byte(leaseText))
	id := decode[pipeline.Report](t, rec).Document.ID

	if rec := do(t, srv, http.MethodGet, "/api/clauses/similar", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing text: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/clauses/similar?text=rent&k=0", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad k: %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/clauses/similar?text=deposit+and+rent", nil, "")
	res := decode[struct {
		Results []index.Result `json:"results"`
	}](t, rec)
	if len(res.Results) == 0 {
		t.Fatal("expected similar chunks")
	}

	rec = do(t, srv, http.MethodGet, "/api/clauses/similar?text=deposit+and+rent&exclude="+id, nil, "")
	res = decode[struct {
		Results []index.Result `json:"results"`
	}](t, rec)
	if len(res.Results) != 0 {
		t.Errorf("excluded document still returned: %+v", res.Results)
	}
}

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	upload(t, srv, "lease.txt", []byte(leaseText))

	rec := do(t, srv, http.MethodGet, "/api/stats/llm", nil, "")
	llmResp := decode[struct {
		Model string     `json:"model"`
		Stats llm.Report `json:"stats"`
	}](t, rec)
	if llmResp.Model != "test-model" || llmResp.Stats.Overall.Count != 1 {
		t.Errorf("llm stats: %+v", llmResp)
	}

	rec = do(t, srv, http.MethodGet, "/api/stats/index", nil, "")
	ixStats := decode[index.Stats](t, rec)
	if ixStats.TotalRecords == 0 || ixStats.Collection != "test" {
		t.Errorf("index stats: %+v", ixStats)
	}

	srv.deps.Index = failingStats{}
	if rec := do(t, srv, http.MethodGet, "/api/stats/index", nil, ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing index stats: %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	upload(t, srv, "lease.txt", []byte(leaseText))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lexdoc_") {
		t.Errorf("metrics: %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"lease.pdf":        "lease.pdf",
		"../../etc/passwd": "passwd",
		`C:\docs\nda.docx`: "nda.docx",
		"":                 "unnamed",
		"..":               "_",
		"a..b.txt":         "a_b.txt",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
