package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/listingops/curator/internal/models"
	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/records"
)

const runIDHeader = "X-Run-ID"

// HandlePipeline runs both stages on a bundle and returns the final record.
func (h *Handler) HandlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, bundle, ok := h.readBundle(w, r)
	if !ok {
		return
	}

	run, err := h.runner.Run(r.Context(), bundle)
	h.respond(w, run, err)
}

// HandleResolve runs only the resolver and returns its record.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, bundle, ok := h.readBundle(w, r)
	if !ok {
		return
	}

	run, err := h.runner.Resolve(r.Context(), bundle)
	h.respond(w, run, err)
}

// HandleBuild runs only the SKU builder. The body is a bundle with the
// resolver record under "resolved".
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, bundle, ok := h.readBundle(w, r)
	if !ok {
		return
	}
	if raw["resolved"] == nil {
		h.writeError(w, "Missing resolved record", http.StatusBadRequest)
		return
	}
	resolved, err := records.ParseResult(raw["resolved"])
	if err != nil {
		h.writeError(w, "Invalid resolved record: "+err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.runner.Build(r.Context(), bundle, resolved)
	h.respond(w, run, err)
}

func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.store.List())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")

	run, ok := h.getRunOrError(w, runID)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, run)
	case http.MethodDelete:
		h.store.Delete(runID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) readBundle(w http.ResponseWriter, r *http.Request) (map[string]any, models.Bundle, bool) {
	raw, err := records.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return nil, models.Bundle{}, false
	}
	bundle, err := records.ParseBundle(raw)
	if err != nil {
		h.writeError(w, "Invalid bundle: "+err.Error(), http.StatusBadRequest)
		return nil, models.Bundle{}, false
	}
	return raw, bundle, true
}

// respond stores the run and writes its record, or the stage error as 422.
func (h *Handler) respond(w http.ResponseWriter, run *pipeline.Run, err error) {
	if run != nil {
		h.store.Set(run)
		w.Header().Set(runIDHeader, run.ID)
	}

	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusServiceUnavailable
		}
		slog.Warn("Pipeline request failed", "err", err, "status", code)
		resp := errorResponse{Error: err.Error()}
		if run != nil {
			resp.RunID = run.ID
		}
		h.writeJSONStatus(w, resp, code)
		return
	}

	h.writeJSON(w, run.Result)
}
