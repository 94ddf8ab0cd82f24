package server

import (
	"net/http"

	"github.com/shelfline/feedengine/internal/model"
)

// HandleSearch implements GET /search?q=&limit=, a full-text lookup over
// the caller's library (bonus browsing surface, layered on internal/search,
// independent of the feed ranking pipeline).
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		writeAppError(w, r, model.NewValidationError("q is required"))
		return
	}
	limit := queryInt(q, "limit", 20)

	if h.deps.Search == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{"results": []any{}})
		return
	}

	hits, err := h.deps.Search.Search(userID, query, limit)
	if err != nil {
		writeAppError(w, r, model.NewExternalFailureError("search failed", err))
		return
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
		scores[hit.ID] = hit.Score
	}

	entries := make([]model.LibraryEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := h.deps.DB.GetEntryByID(r.Context(), userID, id)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"results": entries,
		"scores":  scores,
	})
}
