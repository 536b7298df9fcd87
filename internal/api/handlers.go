package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/cloze"
	"github.com/starford/perthro/internal/exporter"
)

// ExporterFactory builds a fresh exporter per request; each export gets
// its own entity graph.
type ExporterFactory func(deckName, filename string) *exporter.Exporter

// Handler serves the export endpoints.
type Handler struct {
	newExporter ExporterFactory
}

// NewHandler creates a Handler.
func NewHandler(factory ExporterFactory) *Handler {
	return &Handler{newExporter: factory}
}

// Export runs the pipeline over the posted records and streams the
// archive back. Validation problems map to 422, fatal build errors to
// 500; stats travel in the X-Export-Stats header.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	res, err := h.newExporter(req.Deck, req.Filename).Export(r.Context(), req.Cards)
	if err != nil {
		if isFatal(err) {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		// Everything else is bad input the caller can correct.
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}

	stats, _ := json.Marshal(res.Stats)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("X-Export-Stats", string(stats))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func isFatal(err error) bool {
	return errors.Is(err, apperr.ErrCorruptCollection) ||
		errors.Is(err, apperr.ErrManifestInconsistent) ||
		errors.Is(err, apperr.ErrMissingCollection)
}

// ValidateCloze checks a cloze text without exporting anything.
func (h *Handler) ValidateCloze(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	v := cloze.Validate(req.Text)
	resp := ValidateResponse{Valid: v.Valid, Count: v.Count, Duplicates: v.Duplicates}
	if v.Err != nil {
		resp.Error = v.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
