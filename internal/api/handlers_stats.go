package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/lexdoc/internal/index"
)

const maxSimilar = 20

func (s *Server) handleSimilarClauses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	if text == "" {
		jsonError(w, "text query parameter is required", http.StatusBadRequest)
		return
	}
	k := index.DefaultSearchK
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "k must be a positive integer", http.StatusBadRequest)
			return
		}
		k = min(n, maxSimilar)
	}

	results := s.deps.Pipeline.FindSimilar(r.Context(), text, q.Get("exclude"), k)
	if results == nil {
		results = []index.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.LLM == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := map[string]any{
		"model": s.deps.Model,
		"stats": s.deps.LLM.Report(),
	}
	if s.deps.Embeddings != nil {
		resp["embeddings"] = s.deps.Embeddings.Report()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Index == nil {
		jsonError(w, "index stats unavailable", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.deps.Index.Stats(r.Context())
	if err != nil {
		jsonError(w, "failed to read index stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
