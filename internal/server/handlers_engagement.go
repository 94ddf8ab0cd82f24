package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shelfline/feedengine/internal/engagement"
	"github.com/shelfline/feedengine/internal/model"
)

// HandleEngagement implements POST /engagement. The body is either
// {events:[...]} or a single event object (spec §6); both shapes are
// normalized into model.EngagementRequest before reaching internal/engagement.
func (h *Handlers) HandleEngagement(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}

	events, err := decodeEngagementBody(body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp, err := engagement.Ingest(r.Context(), h.deps.DB, userID, events)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func decodeEngagementBody(body []byte) ([]model.EngagementEventInput, error) {
	var batch struct {
		Events []model.EngagementEventInput `json:"events"`
	}
	if err := json.Unmarshal(body, &batch); err == nil && batch.Events != nil {
		return batch.Events, nil
	}

	var single model.EngagementEventInput
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, model.NewValidationError("malformed engagement request body")
	}
	return []model.EngagementEventInput{single}, nil
}
