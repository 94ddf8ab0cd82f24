package ranking

import "math"

// recencyDecay is the per-step decay applied to category occurrences when
// building recency-weighted sums: more recent occurrences weigh more
// (spec §4.1 "Session signal maps").
const recencyDecay = 0.92

// SessionSignals are the derived maps built once per request from the raw
// SessionContext category lists.
type SessionSignals struct {
	EngagedSet      map[string]bool
	SkippedSet      map[string]bool
	EngagedWeights  map[string]float64
	SkippedWeights  map[string]float64
}

// BuildSessionSignals computes membership sets and recency-weighted sums
// per category from the session's engaged/skipped category history.
func BuildSessionSignals(engaged, skipped []string) SessionSignals {
	return SessionSignals{
		EngagedSet:     toSet(engaged),
		SkippedSet:     toSet(skipped),
		EngagedWeights: recencyWeightedSums(engaged),
		SkippedWeights: recencyWeightedSums(skipped),
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

// recencyWeightedSums weights each occurrence of a category by
// decay^(len-1-index) and sums per category, so the most recent occurrence
// (last index) has weight decay^0 = 1.
func recencyWeightedSums(items []string) map[string]float64 {
	sums := make(map[string]float64, len(items))
	n := len(items)
	for i, it := range items {
		weight := math.Pow(recencyDecay, float64(n-1-i))
		sums[it] += weight
	}
	return sums
}

// Momentum sums engagedWeights over categories, per spec §4.1 signal 3.
func (s SessionSignals) Momentum(categories []string) float64 {
	var sum float64
	for _, c := range categories {
		sum += s.EngagedWeights[c]
	}
	return sum
}

// Skip sums skippedWeights over categories, per spec §4.1 signal 3.
func (s SessionSignals) Skip(categories []string) float64 {
	var sum float64
	for _, c := range categories {
		sum += s.SkippedWeights[c]
	}
	return sum
}

// Fatigue is sum_over_cats(max(0, engagedWeight-2)), per spec §4.1 signal 3.
func (s SessionSignals) Fatigue(categories []string) float64 {
	var sum float64
	for _, c := range categories {
		if w := s.EngagedWeights[c] - 2; w > 0 {
			sum += w
		}
	}
	return sum
}

// SameLane reports whether any of categories is in the engaged set, for
// the sameLaneBoost term in signal 3.
func (s SessionSignals) SameLane(categories []string) bool {
	for _, c := range categories {
		if s.EngagedSet[c] {
			return true
		}
	}
	return false
}

// AllNovel reports whether none of categories appears in either the
// engaged or skipped session sets, for the exploration signal's
// sessionNovelty term (spec §4.1 signal 6).
func (s SessionSignals) AllNovel(categories []string) bool {
	if len(categories) == 0 {
		return false
	}
	for _, c := range categories {
		if s.EngagedSet[c] || s.SkippedSet[c] {
			return false
		}
	}
	return true
}
