package server

import (
	"net/http"

	"github.com/shelfline/feedengine/internal/model"
)

// HandleUpload implements POST /upload.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req model.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	entry, err := h.deps.Ingestor.IngestUpload(r.Context(), userID, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	h.indexForSearch(entry)
	writeJSON(w, r, http.StatusCreated, entry)
}

// HandleBulkUpload implements PUT /upload.
func (h *Handlers) HandleBulkUpload(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req model.BulkUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	results, summary := h.deps.Ingestor.IngestBulkURLs(r.Context(), userID, req.URLs)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"results": results,
		"summary": summary,
	})
}
