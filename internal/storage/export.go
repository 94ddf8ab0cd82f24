package storage

import (
	"context"
	"fmt"
	"time"
)

// ExportRow is one joined ranking-event/engagement-outcome row consumed by
// internal/export to compute a reward label and emit a JSONL record (spec
// §4.8).
type ExportRow struct {
	FeedRequestID    string
	UserID           string
	SessionID        *string
	LinkID           string
	AlgorithmVersion string
	RerankerVersion  *string
	ActiveCategory   string
	CandidateRank    int
	ServedRank       *int
	BaseScore        float64
	RerankScore      *float64
	FinalScore       float64
	CreatedAt        time.Time
	ContentType      string
	Categories       []string
	Liked            bool
	Features         map[string]float64

	OpenCount     int
	MaxDwellMs    float64
	AvgDwellMs    float64
	FastSkipCount int
}

// FetchExportRows joins ranking events created within the last sinceDays
// days against engagement outcomes occurring within 6 hours afterward, for
// the same (userId, linkId) and, when present on the engagement event, the
// same session and feed request (spec §4.8).
func (db *DB) FetchExportRows(ctx context.Context, sinceDays int) ([]ExportRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT
			re.feed_request_id, re.user_id, re.session_id, re.link_id, re.algorithm_version,
			re.reranker_version, re.active_category, re.candidate_rank, re.served_rank,
			re.base_score, re.rerank_score, re.final_score, re.created_at,
			le.content_type, le.categories, (le.liked_at IS NOT NULL) AS liked, re.features,
			COALESCE(agg.open_count, 0), COALESCE(agg.max_dwell_ms, 0), COALESCE(agg.avg_dwell_ms, 0),
			COALESCE(agg.fast_skip_count, 0)
		FROM ranking_events re
		JOIN library_entries le ON le.id = re.link_id
		LEFT JOIN LATERAL (
			SELECT
				count(*) FILTER (WHERE ee.event_type = 'open') AS open_count,
				max(ee.dwell_time_ms) FILTER (WHERE ee.event_type = 'dwell') AS max_dwell_ms,
				avg(ee.dwell_time_ms) FILTER (WHERE ee.event_type = 'dwell') AS avg_dwell_ms,
				count(*) FILTER (WHERE ee.event_type = 'dwell' AND ee.dwell_time_ms < 1500) AS fast_skip_count
			FROM engagement_events ee
			WHERE ee.user_id = re.user_id
				AND ee.link_id = re.link_id
				AND ee.created_at > re.created_at
				AND ee.created_at <= re.created_at + interval '6 hours'
				AND (ee.session_id IS NULL OR ee.session_id = re.session_id)
				AND (ee.feed_request_id IS NULL OR ee.feed_request_id = re.feed_request_id)
		) agg ON true
		WHERE re.created_at >= now() - ($1 || ' days')::interval
		ORDER BY re.created_at`, sinceDays,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch export rows: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(
			&r.FeedRequestID, &r.UserID, &r.SessionID, &r.LinkID, &r.AlgorithmVersion,
			&r.RerankerVersion, &r.ActiveCategory, &r.CandidateRank, &r.ServedRank,
			&r.BaseScore, &r.RerankScore, &r.FinalScore, &r.CreatedAt,
			&r.ContentType, &r.Categories, &r.Liked, &r.Features,
			&r.OpenCount, &r.MaxDwellMs, &r.AvgDwellMs, &r.FastSkipCount,
		); err != nil {
			return nil, fmt.Errorf("storage: scan export row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
