// Package diversity implements the post-ranking reorder pass that avoids
// three consecutive items sharing the same primary category (spec §4.3).
package diversity

import "github.com/shelfline/feedengine/internal/ranking"

// lookahead bounds how many remaining candidates are inspected before the
// pass gives up and accepts a triple-completing head anyway (spec §4.3
// "if the first eight remaining all would complete a triple, accept the
// head of the remainder anyway").
const lookahead = 8

// Apply reorders candidates in place order (a new slice is returned;
// candidates is not mutated) to avoid three consecutive primary-category
// repeats, falling back to accepting a triple when no alternative exists
// within the lookahead window.
func Apply(candidates []ranking.RankingCandidate) []ranking.RankingCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	remaining := make([]ranking.RankingCandidate, len(candidates))
	copy(remaining, candidates)

	out := make([]ranking.RankingCandidate, 0, len(candidates))
	var recentPrimaryCats []string

	for len(remaining) > 0 {
		limit := len(remaining)
		if limit > lookahead {
			limit = lookahead
		}

		idx := -1
		for i := 0; i < limit; i++ {
			if !completesTriple(remaining[i].Entry.PrimaryCategory(), recentPrimaryCats) {
				idx = i
				break
			}
		}
		if idx == -1 {
			idx = 0
		}

		picked := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		out = append(out, picked)
		recentPrimaryCats = pushRecent(recentPrimaryCats, picked.Entry.PrimaryCategory())
	}

	return out
}

// completesTriple reports whether cat equals both of the last two recent
// primary categories, which would make three-in-a-row.
func completesTriple(cat string, recent []string) bool {
	if cat == "" || len(recent) < 2 {
		return false
	}
	last := recent[len(recent)-1]
	secondLast := recent[len(recent)-2]
	return cat == last && cat == secondLast
}

func pushRecent(recent []string, cat string) []string {
	recent = append(recent, cat)
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	return recent
}
