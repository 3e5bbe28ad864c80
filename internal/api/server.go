package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/lexdoc/internal/config"
	"github.com/dgallion1/lexdoc/internal/index"
	"github.com/dgallion1/lexdoc/internal/llm"
	"github.com/dgallion1/lexdoc/internal/metrics"
	"github.com/dgallion1/lexdoc/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// IndexStats reports on the vector index.
type IndexStats interface {
	Stats(ctx context.Context) (index.Stats, error)
}

// Deps are the components the server exposes. LLM, Embeddings and Metrics
// may be nil.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Index      IndexStats
	LLM        *llm.LLMStats
	Embeddings *llm.LLMStats
	Metrics    *metrics.Metrics
	Model      string
}

// Server is the HTTP API server for lexdoc.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.LexdocAPIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/analyze", s.handleReanalyze)
			r.Get("/annotated", s.handleAnnotated)
			r.Get("/questions", s.handleHistory)
			r.Post("/questions", s.handleAsk)
			r.Get("/suggested-questions", s.handleSuggestedQuestions)
		})
		r.Get("/api/clauses/similar", s.handleSimilarClauses)

		r.Get("/api/stats/llm", s.handleLLMStats)
		r.Get("/api/stats/index", s.handleIndexStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
