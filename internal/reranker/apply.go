package reranker

import (
	"math"
	"sort"

	"github.com/shelfline/feedengine/internal/ranking"
)

// Apply scores every candidate with m, min-max normalizes the raw model
// scores across the set, blends into FinalScore, and re-sorts descending
// (spec §4.2). If m is nil (no model configured or load failed upstream),
// candidates are returned unchanged in their existing order — pass-through.
func Apply(candidates []ranking.RankingCandidate, m *Model) []ranking.RankingCandidate {
	if m == nil || len(candidates) == 0 {
		return candidates
	}

	raw := make([]float64, len(candidates))
	for i, c := range candidates {
		raw[i] = m.Score(c.Features)
	}

	normalized := minMaxNormalize(raw)

	out := make([]ranking.RankingCandidate, len(candidates))
	for i, c := range candidates {
		modelScore := normalized[i]
		c.RerankScore = &modelScore
		c.FinalScore = c.BaseScore*0.35 + modelScore*0.65
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})

	return out
}

// minMaxNormalize scales values to [0,1]. A degenerate input (all equal, or
// any non-finite value) maps every entry to 0.5 (spec §4.2).
func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))

	min, max := values[0], values[0]
	degenerate := false
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			degenerate = true
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if degenerate || max-min < 1e-12 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	span := max - min
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}
