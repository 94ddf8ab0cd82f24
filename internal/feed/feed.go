// Package feed implements the feed request handler (spec §4.7): it
// orchestrates candidate loading, the scoring core, the optional reranker,
// the diversity pass, pagination, and best-effort ranking-event logging
// for a single GET /feed request.
package feed

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/shelfline/feedengine/internal/diversity"
	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/ranking"
	"github.com/shelfline/feedengine/internal/reranker"
	"github.com/shelfline/feedengine/internal/storage"
)

// maxSemanticHistory is the most recent engagedIds considered for semantic
// matching (spec §4.7: "take only the most recent 48 engagedIds").
const maxSemanticHistory = 48

// Request carries one feed request's inputs (spec §4.7 "Inputs").
type Request struct {
	UserID            string
	Category          string // default "All"
	Limit             int    // [1,50], default 20
	Offset            int    // >= 0, default 0
	SessionID         *string
	ExcludeIDs        map[string]bool
	EngagedIDs        []string
	EngagedCategories []string
	SkippedCategories []string
	CardsShown        int
}

// Normalize applies the documented defaults and bounds to a Request.
func (r Request) Normalize() Request {
	if r.Category == "" {
		r.Category = "All"
	}
	if r.Limit <= 0 {
		r.Limit = 20
	}
	if r.Limit > 50 {
		r.Limit = 50
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	return r
}

// Handler serves feed requests. The reranker model is loaded lazily and
// cached by path; a nil/disabled configuration passes every request
// through reranker.Apply unchanged (spec §4.2).
type Handler struct {
	db              *storage.DB
	rerankerCache   *reranker.Cache
	rerankerPath    string
	rerankerEnabled bool
}

// New builds a feed Handler. rerankerPath is ignored when enabled is false.
func New(db *storage.DB, rerankerCache *reranker.Cache, rerankerPath string, enabled bool) *Handler {
	return &Handler{db: db, rerankerCache: rerankerCache, rerankerPath: rerankerPath, rerankerEnabled: enabled}
}

// Serve runs the full pipeline for one request (spec §4.7 steps 1-9).
func (h *Handler) Serve(ctx context.Context, req Request) (model.FeedResponse, error) {
	req = req.Normalize()
	now := time.Now().UTC()

	var candidates []model.LibraryEntry
	var stats model.LinksStats
	var embeddings map[string]*pgvector.Vector
	var timePrefs []model.TimePreference

	semanticIDs := req.EngagedIDs
	if len(semanticIDs) > maxSemanticHistory {
		semanticIDs = semanticIDs[len(semanticIDs)-maxSemanticHistory:]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := h.db.ListCandidates(gctx, req.UserID, req.Category)
		if err != nil {
			return err
		}
		candidates = c
		return nil
	})
	g.Go(func() error {
		s, err := h.db.Stats(gctx, req.UserID)
		if err != nil {
			return err
		}
		stats = s
		return nil
	})
	g.Go(func() error {
		raw, err := h.db.FetchEmbeddings(gctx, req.UserID, semanticIDs)
		if err != nil {
			return err
		}
		embeddings = raw
		return nil
	})
	g.Go(func() error {
		dayType := model.DayTypeFor(int(now.Weekday()))
		p, err := h.db.GetTimePreferences(gctx, req.UserID, now.Hour(), dayType)
		if err != nil {
			return err
		}
		timePrefs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.FeedResponse{}, err
	}

	candidates = removeExcluded(candidates, req.ExcludeIDs)

	session := ranking.SessionContext{
		EngagedLinkIDs:    req.EngagedIDs,
		EngagedCategories: req.EngagedCategories,
		SkippedCategories: req.SkippedCategories,
		EngagedEmbeddings: embeddingVectors(semanticIDs, embeddings),
		CardsShown:        req.CardsShown,
	}

	ranked := ranking.Score(candidates, session, timePrefs, now)

	var rerankerApplied bool
	var rerankerVersion *string
	if h.rerankerEnabled {
		m, err := h.rerankerCache.Get(h.rerankerPath)
		if err == nil && m != nil {
			ranked = reranker.Apply(ranked, m)
			rerankerApplied = true
			v := m.Version
			rerankerVersion = &v
		}
	}

	ranked = diversity.Apply(ranked)

	servedRankOf := make(map[string]int, req.Limit)
	end := req.Offset + req.Limit
	if end > len(ranked) {
		end = len(ranked)
	}
	var served []ranking.RankingCandidate
	if req.Offset < len(ranked) {
		served = ranked[req.Offset:end]
	}
	for i, c := range served {
		servedRankOf[c.Entry.ID] = req.Offset + i + 1
	}

	feedRequestID := model.NewID()
	h.logRankingEvents(ctx, feedRequestID, req, ranked, servedRankOf, rerankerVersion)

	links := make([]model.LibraryEntry, len(served))
	for i, c := range served {
		e := c.Entry
		e.Embedding = nil // spec §4.7 step 7: never serialize embeddings
		links[i] = e
	}

	return model.FeedResponse{
		Links:            links,
		Categories:       stats.Categories,
		Total:            stats.Active,
		Filtered:         len(candidates),
		FeedRequestID:    feedRequestID,
		AlgorithmVersion: model.AlgorithmVersion,
		RerankerApplied:  rerankerApplied,
		RerankerVersion:  rerankerVersion,
	}, nil
}

// maxRankingEventsLogged bounds how many top candidates are logged per
// request (spec §4.7 step 8: "max(limit*3, 60)").
func maxRankingEventsLogged(limit int) int {
	n := limit * 3
	if n < 60 {
		n = 60
	}
	return n
}

// logRankingEvents is best-effort: storage.InsertRankingEvents swallows its
// own errors, and this function never returns one (spec §5/§9).
func (h *Handler) logRankingEvents(ctx context.Context, feedRequestID string, req Request, ranked []ranking.RankingCandidate, servedRankOf map[string]int, rerankerVersion *string) {
	maxLogged := maxRankingEventsLogged(req.Limit)
	n := len(ranked)
	if n > maxLogged {
		n = maxLogged
	}

	events := make([]model.RankingEvent, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		c := ranked[i]
		var servedRank *int
		if rank, ok := servedRankOf[c.Entry.ID]; ok {
			r := rank
			servedRank = &r
		}
		events = append(events, model.RankingEvent{
			FeedRequestID:    feedRequestID,
			LinkID:           c.Entry.ID,
			UserID:           req.UserID,
			SessionID:        req.SessionID,
			CandidateRank:    i + 1,
			ServedRank:       servedRank,
			BaseScore:        c.BaseScore,
			RerankScore:      c.RerankScore,
			FinalScore:       c.FinalScore,
			Features:         c.Features,
			AlgorithmVersion: model.AlgorithmVersion,
			RerankerVersion:  rerankerVersion,
			ActiveCategory:   req.Category,
			CardsShown:       req.CardsShown,
			CreatedAt:        now,
		})
	}
	h.db.InsertRankingEvents(ctx, events)
}

// embeddingVectors resolves semanticIDs to dense float32 vectors in order,
// skipping IDs with no stored embedding (spec §4.1 "engagedEmbeddings[][]").
func embeddingVectors(semanticIDs []string, embeddings map[string]*pgvector.Vector) [][]float32 {
	out := make([][]float32, 0, len(semanticIDs))
	for _, id := range semanticIDs {
		if v, ok := embeddings[id]; ok && v != nil {
			out = append(out, v.Slice())
		}
	}
	return out
}

func removeExcluded(candidates []model.LibraryEntry, excludeIDs map[string]bool) []model.LibraryEntry {
	if len(excludeIDs) == 0 {
		return candidates
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if !excludeIDs[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
