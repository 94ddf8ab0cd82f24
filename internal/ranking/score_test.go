package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfline/feedengine/internal/model"
)

func TestScore_OutputInvariants(t *testing.T) {
	now := time.Now()
	candidates := []model.LibraryEntry{
		{ID: "a", ContentType: model.ContentTypeArticle, Categories: []string{"Tech"}, AddedAt: now.Add(-time.Hour)},
		{ID: "b", ContentType: model.ContentTypeYouTube, Categories: []string{"AI"}, AddedAt: now.Add(-30 * 24 * time.Hour), ShownCount: 4, EngagementScore: 0.7},
		{ID: "c", ContentType: model.ContentTypeArticle, Categories: []string{"Sports"}, AddedAt: now.Add(-400 * 24 * time.Hour), ShownCount: 20, EngagementScore: 0.1},
	}
	session := SessionContext{CardsShown: 3, EngagedCategories: []string{"Tech"}}

	out := Score(candidates, session, nil, now)

	require.Len(t, out, len(candidates))
	for _, c := range out {
		assert.GreaterOrEqual(t, c.BaseScore, 0.0)
		assert.LessOrEqual(t, c.BaseScore, 1.0)
		assert.Equal(t, c.BaseScore, c.FinalScore)
		assert.Len(t, c.Features, len(model.FeatureNames))
		for _, name := range model.FeatureNames {
			_, ok := c.Features[name]
			assert.True(t, ok, "missing feature %s", name)
		}
	}

	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].FinalScore, out[i].FinalScore)
	}
}

func TestScore_SameLaneBoostFeatureUsesSpecConstant(t *testing.T) {
	now := time.Now()
	session := SessionContext{CardsShown: 5, EngagedCategories: []string{"Tech"}}
	candidates := []model.LibraryEntry{
		{ID: "same-lane", ContentType: model.ContentTypeArticle, Categories: []string{"Tech"}, AddedAt: now},
		{ID: "other-lane", ContentType: model.ContentTypeArticle, Categories: []string{"Sports"}, AddedAt: now},
	}

	out := Score(candidates, session, nil, now)

	byID := map[string]RankingCandidate{}
	for _, c := range out {
		byID[c.Entry.ID] = c
	}
	assert.Equal(t, 0.04, byID["same-lane"].Features["f_session_same_lane_boost"])
	assert.Equal(t, 0.0, byID["other-lane"].Features["f_session_same_lane_boost"])
}

func TestScore_StableOrderOnTies(t *testing.T) {
	now := time.Now()
	candidates := []model.LibraryEntry{
		{ID: "a", AddedAt: now},
		{ID: "b", AddedAt: now},
	}
	out := Score(candidates, SessionContext{}, nil, now)

	assert.Equal(t, "a", out[0].Entry.ID)
	assert.Equal(t, "b", out[1].Entry.ID)
}

func TestScore_EmptyCandidatesReturnsEmpty(t *testing.T) {
	out := Score(nil, SessionContext{}, nil, time.Now())
	assert.Empty(t, out)
}

func TestScore_EngagedCategoryMomentumRaisesRankWithinSimilarScores(t *testing.T) {
	now := time.Now()
	techHeavy := model.LibraryEntry{ID: "tech", ContentType: model.ContentTypeArticle, Categories: []string{"Tech"}, AddedAt: now}
	sportsHeavy := model.LibraryEntry{ID: "sports", ContentType: model.ContentTypeArticle, Categories: []string{"Sports"}, AddedAt: now}

	session := SessionContext{
		CardsShown:        10,
		EngagedCategories: []string{"Tech", "Tech", "Tech"},
		SkippedCategories: []string{"Sports", "Sports", "Sports"},
	}

	out := Score([]model.LibraryEntry{sportsHeavy, techHeavy}, session, nil, now)
	assert.Equal(t, "tech", out[0].Entry.ID)
}
