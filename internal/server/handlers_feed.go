package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shelfline/feedengine/internal/feed"
)

// HandleFeed implements GET /feed (spec §4.7, §6).
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	q := r.URL.Query()

	req := feed.Request{
		UserID:            userID,
		Category:          q.Get("category"),
		Limit:             queryInt(q, "limit", 0),
		Offset:            queryInt(q, "offset", 0),
		SessionID:         querySessionID(q),
		ExcludeIDs:        queryIDSet(q, "excludeIds"),
		EngagedIDs:        queryList(q, "engagedIds"),
		EngagedCategories: queryList(q, "engagedCats"),
		SkippedCategories: queryList(q, "skippedCats"),
		CardsShown:        queryInt(q, "cardsShown", 0),
	}

	resp, err := h.deps.Feed.Serve(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func queryInt(q map[string][]string, key string, def int) int {
	v := firstOf(q, key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func querySessionID(q map[string][]string) *string {
	v := firstOf(q, "sessionId")
	if v == "" {
		return nil
	}
	return &v
}

func queryList(q map[string][]string, key string) []string {
	v := firstOf(q, key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryIDSet(q map[string][]string, key string) map[string]bool {
	ids := queryList(q, key)
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func firstOf(q map[string][]string, key string) string {
	vs := q[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
