package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shelfline/feedengine/internal/model"
)

// InsertRankingEvents logs candidate snapshots for a feed request,
// best-effort: conflicts on (feed_request_id, link_id) are dropped
// silently and any error is logged but never returned, per spec §5/§9
// ("best-effort logging... must never block the response").
func (db *DB) InsertRankingEvents(ctx context.Context, events []model.RankingEvent) {
	if len(events) == 0 {
		return
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO ranking_events
				(feed_request_id, link_id, user_id, session_id, candidate_rank, served_rank,
				 base_score, rerank_score, final_score, features, algorithm_version,
				 reranker_version, active_category, cards_shown, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (feed_request_id, link_id) DO NOTHING`,
			e.FeedRequestID, e.LinkID, e.UserID, e.SessionID, e.CandidateRank, e.ServedRank,
			e.BaseScore, e.RerankScore, e.FinalScore, e.Features, e.AlgorithmVersion,
			e.RerankerVersion, e.ActiveCategory, e.CardsShown, e.CreatedAt,
		)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			db.logger.Warn("storage: ranking event insert failed, dropping", "error", err)
		}
	}
}
