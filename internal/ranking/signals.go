package ranking

import (
	"math"
	"time"

	"github.com/shelfline/feedengine/internal/model"
)

// EngagementSignal implements spec §4.1 signal 1.
func EngagementSignal(e model.LibraryEntry, typeMean float64, now time.Time) float64 {
	likedBoost := 0.0
	if e.LikedAt != nil {
		likedBoost = 0.08
	}

	if e.ShownCount == 0 {
		score := 0.58 + (typeMean-0.5)*0.2 + likedBoost
		return model.Clamp01(score)
	}

	var baseline float64
	if e.EngagementScore > 0 {
		baseline = e.EngagementScore*0.72 + typeMean*0.28
	} else {
		baseline = typeMean * 0.9
	}

	var recencySignal float64
	if e.LastShownAt == nil {
		recencySignal = 0.55
	} else {
		daysSince := now.Sub(*e.LastShownAt).Hours() / 24
		recencySignal = math.Exp(-daysSince / 30)
	}

	openSignal := math.Min(1, float64(e.OpenCount)/math.Max(1, float64(e.ShownCount))) * 0.2
	overShownPenalty := math.Min(0.22, math.Max(0, float64(e.ShownCount-10))*0.015)

	score := baseline*0.67 + recencySignal*0.23 + openSignal + likedBoost - overShownPenalty
	return model.Clamp01(score)
}

// SemanticSignal implements spec §4.1 signal 2.
func SemanticSignal(e model.LibraryEntry, engagedEmbeddings [][]float32) float64 {
	if !e.HasEmbedding() || len(engagedEmbeddings) == 0 {
		return 0.5
	}

	entryVec := e.Embedding.Slice()
	var maxSim, sumSim float64
	for i, other := range engagedEmbeddings {
		sim := model.Clamp01((cosineSimilarity(entryVec, other) + 1) / 2)
		if i == 0 || sim > maxSim {
			maxSim = sim
		}
		sumSim += sim
	}
	mean := sumSim / float64(len(engagedEmbeddings))
	return maxSim*0.65 + mean*0.35
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SessionSignal implements spec §4.1 signal 3.
func SessionSignal(e model.LibraryEntry, cardsShown int, signals SessionSignals) float64 {
	if cardsShown == 0 || len(e.Categories) == 0 {
		return 0.5
	}

	momentum := signals.Momentum(e.Categories)
	skip := signals.Skip(e.Categories)
	fatigue := signals.Fatigue(e.Categories)

	sameLaneBoost := 0.0
	if signals.SameLane(e.Categories) {
		sameLaneBoost = 0.04
	}

	score := 0.5 + math.Min(0.32, momentum*0.07) - math.Min(0.34, skip*0.1) - math.Min(0.2, fatigue*0.04) + sameLaneBoost
	return model.Clamp01(score)
}

// TimePreferenceSignal implements spec §4.1 signal 4.
func TimePreferenceSignal(e model.LibraryEntry, prefs []model.TimePreference) float64 {
	if len(e.Categories) == 0 {
		return 0.5
	}

	byCategory := make(map[string]float64, len(prefs))
	for _, p := range prefs {
		if p.Usable() {
			byCategory[p.Category] = p.AvgEngagement
		}
	}
	if len(byCategory) == 0 {
		return 0.5
	}

	found := false
	var maxAvg float64
	for _, cat := range e.Categories {
		if v, ok := byCategory[cat]; ok {
			if !found || v > maxAvg {
				maxAvg = v
				found = true
			}
		}
	}
	if !found {
		return 0.5
	}
	return model.Clamp01(maxAvg)
}

// FreshnessSignal implements spec §4.1 signal 5.
func FreshnessSignal(e model.LibraryEntry, now time.Time) float64 {
	daysSince := now.Sub(e.AddedAt).Hours() / 24

	var score float64
	switch {
	case daysSince < 1:
		score = 0.72
	case daysSince < 14:
		score = 0.56
	case daysSince <= 56:
		score = 0.88 // forgotten-gem boost
	case daysSince <= 120:
		score = 0.42
	default:
		score = 0.25
	}

	score -= math.Min(0.35, float64(e.ShownCount)*0.028)
	if e.LikedAt != nil {
		score += 0.08
	}
	return model.Clamp01(score)
}

// ExplorationSignal implements spec §4.1 signal 6 (UCB).
func ExplorationSignal(e model.LibraryEntry, stats DatasetStats, signals SessionSignals) float64 {
	var meanEstimate float64
	if e.ShownCount > 0 {
		meanEstimate = e.EngagementScore
	} else {
		meanEstimate = stats.CategoryPrior(e.Categories)
	}

	uncertainty := math.Sqrt(math.Log(float64(stats.TotalShown+2)) / float64(e.ShownCount+1))

	var categoryNovelty float64
	for i, cat := range e.Categories {
		n := 1 / math.Sqrt(float64(stats.CategoryShown(cat)+1))
		if i == 0 || n > categoryNovelty {
			categoryNovelty = n
		}
	}

	sessionNovelty := 0.0
	if signals.AllNovel(e.Categories) {
		sessionNovelty = 0.08
	}

	score := meanEstimate + 0.28*uncertainty + 0.14*categoryNovelty + sessionNovelty
	return model.Clamp01(score)
}
