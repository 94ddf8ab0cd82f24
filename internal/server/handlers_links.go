package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/storage"
)

// HandleLinksCreate implements POST /links.
func (h *Handlers) HandleLinksCreate(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req model.LinksCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	entry, err := h.deps.Ingestor.IngestURL(r.Context(), userID, req.URL)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	h.indexForSearch(entry)
	writeJSON(w, r, http.StatusCreated, entry)
}

// HandleLinksList implements both GET /links?status=&limit= and
// GET /links?stats=true.
func (h *Handlers) HandleLinksList(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	q := r.URL.Query()

	if q.Get("stats") == "true" {
		stats, err := h.deps.DB.Stats(r.Context(), userID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, stats)
		return
	}

	opts := storage.ListEntriesOpts{Status: model.EntryStatus(q.Get("status"))}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = limit
	}

	entries, err := h.deps.DB.ListEntries(r.Context(), userID, opts)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// HandleLinksPatch implements PATCH /links/{id}.
func (h *Handlers) HandleLinksPatch(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var req model.LinksPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}

	patch := storage.EntryPatch{
		Status:     req.Status,
		ShownCount: req.ShownCount,
		Liked:      req.Liked,
	}
	if req.IncrementShown != nil && *req.IncrementShown {
		patch.IncrementShown = true
	}

	entry, err := h.deps.DB.PatchEntry(r.Context(), userID, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeAppError(w, r, model.NewNotFoundError("link not found"))
			return
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

// HandleLinksDelete implements DELETE /links/{id}.
func (h *Handlers) HandleLinksDelete(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.deps.DB.DeleteEntry(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeAppError(w, r, model.NewNotFoundError("link not found"))
			return
		}
		writeAppError(w, r, err)
		return
	}
	if h.deps.Search != nil {
		_ = h.deps.Search.DeleteEntry(id)
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// indexForSearch best-effort indexes e for full-text search (internal/search
// is a bonus browsing surface, not part of the ranking pipeline — a failure
// here must never fail the request that created the entry).
func (h *Handlers) indexForSearch(e model.LibraryEntry) {
	if h.deps.Search == nil {
		return
	}
	_ = h.deps.Search.IndexEntry(e)
}
