// Package export implements the training-dataset exporter (spec §4.8): it
// joins ranking events with the engagement outcomes that followed them and
// emits one line-delimited-JSON record per candidate, reward-labeled for
// scripts/train_reranker.py.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/storage"
)

const (
	dwellRewardDenominator = 45000.0 // ms; matches spec §4.8's reward formula
	openRewardWeight       = 0.6
	dwellRewardWeight      = 0.35
	likedBonus             = 0.35
	skipPenalty            = 0.3
)

// Record is one emitted training row, field names matching
// scripts/train_reranker.py's expected snake_case keys.
type Record struct {
	FeedRequestID    string             `json:"feed_request_id"`
	UserID           string             `json:"user_id"`
	SessionID        *string            `json:"session_id,omitempty"`
	LinkID           string             `json:"link_id"`
	AlgorithmVersion string             `json:"algorithm_version"`
	RerankerVersion  *string            `json:"reranker_version,omitempty"`
	ActiveCategory   string             `json:"active_category"`
	CandidateRank    int                `json:"candidate_rank"`
	ServedRank       *int               `json:"served_rank,omitempty"`
	BaseScore        float64            `json:"base_score"`
	RerankScore      *float64           `json:"rerank_score,omitempty"`
	FinalScore       float64            `json:"final_score"`
	ContentType      string             `json:"content_type"`
	Categories       []string           `json:"categories"`
	Liked            bool               `json:"liked"`
	Features         map[string]float64 `json:"features"`
	OpenCount        int                `json:"open_count"`
	MaxDwellMs       float64            `json:"max_dwell_ms"`
	AvgDwellMs       float64            `json:"avg_dwell_ms"`
	FastSkipCount    int                `json:"fast_skip_count"`
	Reward           float64            `json:"reward"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Run fetches export rows created within the last sinceDays days and
// writes one JSONL Record per row to w.
func Run(ctx context.Context, db *storage.DB, sinceDays int, w io.Writer) (int, error) {
	rows, err := db.FetchExportRows(ctx, sinceDays)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	n := 0
	for _, r := range rows {
		rec := toRecord(r)
		if err := enc.Encode(rec); err != nil {
			return n, fmt.Errorf("export: encode record: %w", err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("export: flush: %w", err)
	}
	return n, nil
}

// toRecord computes the reward label for one joined row (spec §4.8).
func toRecord(r storage.ExportRow) Record {
	return Record{
		FeedRequestID:    r.FeedRequestID,
		UserID:           r.UserID,
		SessionID:        r.SessionID,
		LinkID:           r.LinkID,
		AlgorithmVersion: r.AlgorithmVersion,
		RerankerVersion:  r.RerankerVersion,
		ActiveCategory:   r.ActiveCategory,
		CandidateRank:    r.CandidateRank,
		ServedRank:       r.ServedRank,
		BaseScore:        r.BaseScore,
		RerankScore:      r.RerankScore,
		FinalScore:       r.FinalScore,
		ContentType:      r.ContentType,
		Categories:       r.Categories,
		Liked:            r.Liked,
		Features:         r.Features,
		OpenCount:        r.OpenCount,
		MaxDwellMs:       r.MaxDwellMs,
		AvgDwellMs:       r.AvgDwellMs,
		FastSkipCount:    r.FastSkipCount,
		Reward:           reward(r),
		CreatedAt:        r.CreatedAt,
	}
}

// reward implements spec §4.8's formula. Unserved candidates (servedRank
// nil) never reached the user, so their reward is 0 regardless of any
// engagement that happened to land on the same link via another request.
func reward(r storage.ExportRow) float64 {
	if r.ServedRank == nil {
		return 0
	}

	var openReward float64
	if r.OpenCount > 0 {
		openReward = 1
	}
	dwellReward := model.Clamp01(r.MaxDwellMs / dwellRewardDenominator)

	var liked float64
	if r.Liked {
		liked = likedBonus
	}
	var skipped float64
	if r.FastSkipCount > 0 {
		skipped = skipPenalty
	}

	return model.Clamp01(openReward*openRewardWeight + dwellReward*dwellRewardWeight + liked - skipped)
}
