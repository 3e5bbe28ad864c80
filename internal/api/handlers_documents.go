package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/lexdoc/internal/annotate"
	"github.com/dgallion1/lexdoc/internal/parser"
	"github.com/dgallion1/lexdoc/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		pipelineError(w, fmt.Errorf("unsupported file type %q: %w", filepath.Ext(filename), pipeline.ErrExtraction))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	report, err := s.deps.Pipeline.Ingest(r.Context(), pipeline.RawDocument{Filename: filename, Data: data})
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.deps.Pipeline.List()})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Pipeline.Get(chi.URLParam(r, "docID"))
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Pipeline.Reanalyze(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnnotated(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Pipeline.Annotate(chi.URLParam(r, "docID"))
	if err != nil {
		pipelineError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(res.Markup))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(annotate.PlainText(res.Markup)))
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// handleDeleteDocument drops a document and its index records.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.deps.Pipeline.Delete(r.Context(), docID); err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": docID, "deleted": true})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	qa, err := s.deps.Pipeline.Ask(r.Context(), chi.URLParam(r, "docID"), req.Question)
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qa)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.Pipeline.History(chi.URLParam(r, "docID"))
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleSuggestedQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.deps.Pipeline.SuggestedQuestions(chi.URLParam(r, "docID"))
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}
