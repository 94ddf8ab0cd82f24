package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/shelfline/feedengine/internal/model"
)

// Score computes the dataset statistics, session signals and derived
// weights once per request, then scores every candidate and returns them
// sorted by FinalScore descending (ties broken by stable input order), per
// spec §4.1 "Output invariants". FinalScore equals BaseScore until a
// reranker (internal/reranker) or diversity pass (internal/diversity)
// mutates it further.
func Score(candidates []model.LibraryEntry, session SessionContext, timePrefs []model.TimePreference, now time.Time) []RankingCandidate {
	stats := BuildDatasetStats(candidates)
	signals := BuildSessionSignals(Bound(session.EngagedCategories), Bound(session.SkippedCategories))

	flags := WeightFlags{
		HasEngagedEmbeddings: len(session.EngagedEmbeddings) > 0,
		HasUsableTimePrefs:   anyUsable(timePrefs),
		CardsShown:           session.CardsShown,
	}
	weights := DeriveWeights(flags)

	out := make([]RankingCandidate, len(candidates))
	for i, e := range candidates {
		out[i] = scoreOne(e, stats, signals, timePrefs, weights, session, now)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})

	return out
}

func anyUsable(prefs []model.TimePreference) bool {
	for _, p := range prefs {
		if p.Usable() {
			return true
		}
	}
	return false
}

func scoreOne(e model.LibraryEntry, stats DatasetStats, signals SessionSignals, timePrefs []model.TimePreference, weights Weights, session SessionContext, now time.Time) RankingCandidate {
	typeMean := stats.TypeMean(e.ContentType)

	breakdown := Breakdown{
		Engagement:  EngagementSignal(e, typeMean, now),
		Semantic:    SemanticSignal(e, session.EngagedEmbeddings),
		Session:     SessionSignal(e, session.CardsShown, signals),
		TimePref:    TimePreferenceSignal(e, timePrefs),
		Freshness:   FreshnessSignal(e, now),
		Exploration: ExplorationSignal(e, stats, signals),
	}

	baseScore := model.Clamp01(
		breakdown.Engagement*weights.Engagement +
			breakdown.Semantic*weights.Semantic +
			breakdown.Session*weights.Session +
			breakdown.TimePref*weights.TimePref +
			breakdown.Freshness*weights.Freshness +
			breakdown.Exploration*weights.Exploration,
	)

	features := buildFeatures(e, breakdown, stats, signals, typeMean, now)

	return RankingCandidate{
		Entry:      e,
		BaseScore:  baseScore,
		FinalScore: baseScore,
		Breakdown:  breakdown,
		Features:   features,
	}
}

func buildFeatures(e model.LibraryEntry, b Breakdown, stats DatasetStats, signals SessionSignals, typeMean float64, now time.Time) map[string]float64 {
	daysSinceAdded := now.Sub(e.AddedAt).Hours() / 24

	isLiked := 0.0
	if e.LikedAt != nil {
		isLiked = 1
	}
	isUnseen := 0.0
	if e.ShownCount == 0 {
		isUnseen = 1
	}
	hasEmbedding := 0.0
	if e.HasEmbedding() {
		hasEmbedding = 1
	}
	sameLaneBoost := 0.0
	if signals.SameLane(e.Categories) {
		sameLaneBoost = 0.04
	}

	return map[string]float64{
		"f_engagement":              b.Engagement,
		"f_semantic":                b.Semantic,
		"f_session":                 b.Session,
		"f_time_pref":               b.TimePref,
		"f_freshness":               b.Freshness,
		"f_exploration":             b.Exploration,
		"f_shown_count_norm":        math.Min(1, float64(e.ShownCount)/20),
		"f_open_rate":               math.Min(1, float64(e.OpenCount)/math.Max(1, float64(e.ShownCount))),
		"f_days_since_added_norm":   model.Clamp01(daysSinceAdded / 120),
		"f_is_liked":                isLiked,
		"f_is_unseen":               isUnseen,
		"f_category_count_norm":     model.Clamp01(float64(len(e.Categories)) / 4),
		"f_has_embedding":           hasEmbedding,
		"f_content_type_prior":      typeMean,
		"f_session_momentum":        model.Clamp01(signals.Momentum(e.Categories) / 5),
		"f_session_skip_pressure":   model.Clamp01(signals.Skip(e.Categories) / 5),
		"f_session_fatigue":         model.Clamp01(signals.Fatigue(e.Categories) / 4),
		"f_session_same_lane_boost": sameLaneBoost,
		"f_ucb_uncertainty":         model.Clamp01(math.Sqrt(math.Log(float64(stats.TotalShown+2))/float64(e.ShownCount+1)) / 3),
		"f_category_novelty":        categoryNoveltyFeature(e.Categories, stats),
		"f_session_novelty":         boolFeature(signals.AllNovel(e.Categories)),
	}
}

func categoryNoveltyFeature(categories []string, stats DatasetStats) float64 {
	var maxNovelty float64
	for i, cat := range categories {
		n := 1 / math.Sqrt(float64(stats.CategoryShown(cat)+1))
		if i == 0 || n > maxNovelty {
			maxNovelty = n
		}
	}
	return maxNovelty
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
