// Package api exposes the technical-sheet pipeline over HTTP. Request
// results are served back from the in-memory registry; the generated
// document and PDFs can be downloaded by request ID.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/btp-tools/fichetech/internal/models"
	"github.com/btp-tools/fichetech/internal/pipeline"
	"github.com/btp-tools/fichetech/internal/registry"
)

// Runner executes one technical-sheet request to completion.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) models.RequestResult
}

type Handlers struct {
	runner   Runner
	registry *registry.Registry
	logger   *slog.Logger
}

func NewHandlers(runner Runner, reg *registry.Registry, logger *slog.Logger) *Handlers {
	return &Handlers{
		runner:   runner,
		registry: reg,
		logger:   logger.With("component", "api"),
	}
}

// CreateTechsheet runs the pipeline synchronously and returns the full
// result. The run can take minutes; clients are expected to wait.
func (h *Handlers) CreateTechsheet(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.runner.Run(r.Context(), req)
	h.registry.Add(&result)

	h.respondJSON(w, http.StatusOK, result)
}

// GetResult returns a stored result by request ID.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if requestID == "" {
		h.respondError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	result, ok := h.registry.Get(requestID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "result not found")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ListResults returns all stored results, oldest first.
func (h *Handlers) ListResults(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.registry.List())
}

// GetStats returns aggregate counts over stored results.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.registry.Stats())
}

// GetDocument streams the generated DOCX for a request.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	result, ok := h.registry.Get(requestID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "result not found")
		return
	}
	if result.GeneratedDocx == "" {
		h.respondError(w, http.StatusNotFound, "no document generated for this request")
		return
	}
	if _, err := os.Stat(result.GeneratedDocx); err != nil {
		h.respondError(w, http.StatusNotFound, "document file missing")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(result.GeneratedDocx)+`"`)
	http.ServeFile(w, r, result.GeneratedDocx)
}

// GetPDF streams one downloaded PDF of a request, identified by file name.
// Only names recorded on the result are served.
func (h *Handlers) GetPDF(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	name := chi.URLParam(r, "name")
	result, ok := h.registry.Get(requestID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "result not found")
		return
	}

	for _, path := range result.DownloadedPDFs {
		if filepath.Base(path) != name {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			h.respondError(w, http.StatusNotFound, "pdf file missing")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
		http.ServeFile(w, r, path)
		return
	}

	h.respondError(w, http.StatusNotFound, "pdf not found")
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
