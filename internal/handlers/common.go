package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/storage"
)

// maxBodySize bounds request bodies.
const maxBodySize = 10 << 20

type Handler struct {
	runner *pipeline.Runner
	store  *storage.RunStore
}

func New(runner *pipeline.Runner, store *storage.RunStore) *Handler {
	return &Handler{
		runner: runner,
		store:  store,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSONStatus(w, errorResponse{Error: message}, code)
}

// Run helpers
func (h *Handler) getRunOrError(w http.ResponseWriter, runID string) (*pipeline.Run, bool) {
	run, exists := h.store.Get(runID)
	if !exists {
		h.writeError(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}
