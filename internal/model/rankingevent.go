package model

import "time"

// AlgorithmVersion identifies the scoring-core implementation that produced
// a RankingEvent. Bumped whenever the weight-derivation or signal formulas
// change in a way that would make historical ranking_events incomparable.
const AlgorithmVersion = "feedengine-scoring-v1"

// RankingEvent is one row per candidate per feed request (spec §3). The
// pair (feedRequestId, linkId) is unique; conflicting inserts are dropped
// silently (spec §5, §9 "best-effort logging").
type RankingEvent struct {
	FeedRequestID    string             `json:"feedRequestId"`
	LinkID           string             `json:"linkId"`
	UserID           string             `json:"-"`
	SessionID        *string            `json:"sessionId,omitempty"`
	CandidateRank    int                `json:"candidateRank"`
	ServedRank       *int               `json:"servedRank,omitempty"`
	BaseScore        float64            `json:"baseScore"`
	RerankScore      *float64           `json:"rerankScore,omitempty"`
	FinalScore       float64            `json:"finalScore"`
	Features         map[string]float64 `json:"features"`
	AlgorithmVersion string             `json:"algorithmVersion"`
	RerankerVersion  *string            `json:"rerankerVersion,omitempty"`
	ActiveCategory   string             `json:"activeCategory"`
	CardsShown       int                `json:"cardsShown"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// FeatureNames lists the 21 named features every scoring-core output must
// carry, in the order enumerated by spec §4.1 "Features". Order here is
// purely documentary; the map is unordered.
var FeatureNames = []string{
	"f_engagement",
	"f_semantic",
	"f_session",
	"f_time_pref",
	"f_freshness",
	"f_exploration",
	"f_shown_count_norm",
	"f_open_rate",
	"f_days_since_added_norm",
	"f_is_liked",
	"f_is_unseen",
	"f_category_count_norm",
	"f_has_embedding",
	"f_content_type_prior",
	"f_session_momentum",
	"f_session_skip_pressure",
	"f_session_fatigue",
	"f_session_same_lane_boost",
	"f_ucb_uncertainty",
	"f_category_novelty",
	"f_session_novelty",
}

// FeedResponse is the body of GET /feed.
type FeedResponse struct {
	Links            []LibraryEntry `json:"links"`
	Categories       []string       `json:"categories"`
	Total            int            `json:"total"`
	Filtered         int            `json:"filtered"`
	FeedRequestID    string         `json:"feedRequestId"`
	AlgorithmVersion string         `json:"algorithmVersion"`
	RerankerApplied  bool           `json:"rerankerApplied"`
	RerankerVersion  *string        `json:"rerankerVersion,omitempty"`
}
