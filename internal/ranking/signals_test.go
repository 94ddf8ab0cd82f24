package ranking

import (
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"

	"github.com/shelfline/feedengine/internal/model"
)

func TestEngagementSignal_ColdStart(t *testing.T) {
	now := time.Now()
	e := model.LibraryEntry{ContentType: model.ContentTypeArticle, AddedAt: now}

	score := EngagementSignal(e, 0.5, now)
	assert.InDelta(t, 0.58, score, 1e-9)
}

func TestEngagementSignal_LikedColdStartBoost(t *testing.T) {
	now := time.Now()
	likedAt := now.Add(-time.Hour)
	e := model.LibraryEntry{AddedAt: now, LikedAt: &likedAt}

	score := EngagementSignal(e, 0.5, now)
	assert.InDelta(t, 0.66, score, 1e-9)
}

func TestEngagementSignal_SeenNeverShownRecency(t *testing.T) {
	now := time.Now()
	e := model.LibraryEntry{
		AddedAt:         now,
		ShownCount:      3,
		EngagementScore: 0.4,
	}

	score := EngagementSignal(e, 0.5, now)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestEngagementSignal_OverShownPenalty(t *testing.T) {
	now := time.Now()
	lastShown := now.Add(-time.Hour)
	light := model.LibraryEntry{AddedAt: now, ShownCount: 5, EngagementScore: 0.5, LastShownAt: &lastShown}
	heavy := model.LibraryEntry{AddedAt: now, ShownCount: 20, EngagementScore: 0.5, LastShownAt: &lastShown}

	assert.Greater(t, EngagementSignal(light, 0.5, now), EngagementSignal(heavy, 0.5, now))
}

func TestSemanticSignal_NoEmbeddingDefaultsToNeutral(t *testing.T) {
	e := model.LibraryEntry{}
	assert.Equal(t, 0.5, SemanticSignal(e, [][]float32{{1, 0, 0}}))
}

func TestSemanticSignal_NoEngagedEmbeddingsDefaultsToNeutral(t *testing.T) {
	v := pgvector.NewVector([]float32{1, 0, 0})
	e := model.LibraryEntry{Embedding: &v}
	assert.Equal(t, 0.5, SemanticSignal(e, nil))
}

func TestSemanticSignal_IdenticalVectorsMaximal(t *testing.T) {
	v := pgvector.NewVector([]float32{1, 0, 0})
	e := model.LibraryEntry{Embedding: &v}

	score := SemanticSignal(e, [][]float32{{1, 0, 0}})
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestSemanticSignal_OrthogonalVectorsNeutral(t *testing.T) {
	v := pgvector.NewVector([]float32{1, 0, 0})
	e := model.LibraryEntry{Embedding: &v}

	score := SemanticSignal(e, [][]float32{{0, 1, 0}})
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestSessionSignal_NoCardsShownIsNeutral(t *testing.T) {
	e := model.LibraryEntry{Categories: []string{"Tech"}}
	signals := BuildSessionSignals([]string{"Tech"}, nil)
	assert.Equal(t, 0.5, SessionSignal(e, 0, signals))
}

func TestSessionSignal_MomentumBoostsAboveNeutral(t *testing.T) {
	e := model.LibraryEntry{Categories: []string{"Tech"}}
	signals := BuildSessionSignals([]string{"Tech", "Tech", "Tech"}, nil)
	assert.Greater(t, SessionSignal(e, 5, signals), 0.5)
}

func TestSessionSignal_SkipPressureLowersBelowNeutral(t *testing.T) {
	e := model.LibraryEntry{Categories: []string{"Sports"}}
	signals := BuildSessionSignals(nil, []string{"Sports", "Sports", "Sports"})
	assert.Less(t, SessionSignal(e, 5, signals), 0.5)
}

func TestTimePreferenceSignal_NoUsablePrefsNeutral(t *testing.T) {
	e := model.LibraryEntry{Categories: []string{"Tech"}}
	assert.Equal(t, 0.5, TimePreferenceSignal(e, nil))
}

func TestTimePreferenceSignal_UsesMaxAcrossCategories(t *testing.T) {
	e := model.LibraryEntry{Categories: []string{"Tech", "AI"}}
	prefs := []model.TimePreference{
		{Category: "Tech", AvgEngagement: 0.3, SampleCount: 5},
		{Category: "AI", AvgEngagement: 0.9, SampleCount: 5},
	}
	assert.InDelta(t, 0.9, TimePreferenceSignal(e, prefs), 1e-9)
}

func TestFreshnessSignal_ForgottenGemBoost(t *testing.T) {
	now := time.Now()
	addedAt := now.Add(-30 * 24 * time.Hour)
	e := model.LibraryEntry{AddedAt: addedAt}
	assert.InDelta(t, 0.88, FreshnessSignal(e, now), 1e-9)
}

func TestFreshnessSignal_VeryOldIsLow(t *testing.T) {
	now := time.Now()
	addedAt := now.Add(-400 * 24 * time.Hour)
	e := model.LibraryEntry{AddedAt: addedAt}
	assert.InDelta(t, 0.25, FreshnessSignal(e, now), 1e-9)
}

func TestFreshnessSignal_ShownCountPenalty(t *testing.T) {
	now := time.Now()
	unseen := model.LibraryEntry{AddedAt: now}
	heavy := model.LibraryEntry{AddedAt: now, ShownCount: 10}
	assert.Greater(t, FreshnessSignal(unseen, now), FreshnessSignal(heavy, now))
}

func TestExplorationSignal_UnseenUsesCategoryPrior(t *testing.T) {
	statsWithPrior := func(engagementSum float64) DatasetStats {
		return DatasetStats{
			TotalShown:           10,
			GlobalEngagementMean: 0.5,
			CategoryBandits: map[string]CategoryBandit{
				"Tech": {Shown: 10, EngagementSum: engagementSum},
			},
		}
	}
	signals := BuildSessionSignals(nil, nil)
	e := model.LibraryEntry{Categories: []string{"Tech"}}

	// Only the Tech prior differs (0.1 vs 0.3) and neither score reaches the
	// clamp, so the scores differ by exactly the prior difference.
	low := ExplorationSignal(e, statsWithPrior(1), signals)
	high := ExplorationSignal(e, statsWithPrior(3), signals)
	assert.InDelta(t, 0.2, high-low, 1e-9)
}

func TestExplorationSignal_SessionNoveltyBonus(t *testing.T) {
	stats := DatasetStats{TotalShown: 10, GlobalEngagementMean: 0.1}
	signals := BuildSessionSignals(nil, nil)
	novel := model.LibraryEntry{Categories: []string{"Tech"}}

	seenSignals := BuildSessionSignals([]string{"Tech"}, nil)
	seen := model.LibraryEntry{Categories: []string{"Tech"}}

	assert.Greater(t, ExplorationSignal(novel, stats, signals), ExplorationSignal(seen, stats, seenSignals))
}
