package server

import (
	"net/http"

	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/unfurl"
)

// HandleUnfurl implements POST /unfurl (spec §4.6, §6). The SSRF guard's
// rejection reason is never surfaced to the client (spec §7 UnsafeTarget).
func (h *Handlers) HandleUnfurl(w http.ResponseWriter, r *http.Request) {
	var req model.UnfurlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	u, err := h.deps.Fetcher.CheckURLOnly(r.Context(), req.URL)
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			writeAppError(w, r, model.NewUnsafeTargetError(req.URL, err))
			return
		}
		writeAppError(w, r, model.NewValidationError("invalid URL: "+err.Error()))
		return
	}

	result, err := unfurl.Fetch(r.Context(), h.deps.Fetcher, u.String())
	if err != nil {
		if fetchguard.IsUnsafe(err) {
			writeAppError(w, r, model.NewUnsafeTargetError(req.URL, err))
			return
		}
		writeAppError(w, r, model.NewExternalFailureError("unfurl failed", err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
