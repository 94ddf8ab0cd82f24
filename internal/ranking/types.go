// Package ranking implements the scoring core: dataset-wide statistics,
// session-signal maps, weight derivation, per-candidate feature vectors and
// heuristic base scores, and the final sort (spec §4.1).
package ranking

import (
	"github.com/shelfline/feedengine/internal/model"
)

// SessionContext is the short-lived, per-user signal bundle describing the
// current browsing session (spec §3, GLOSSARY "Session context").
type SessionContext struct {
	EngagedLinkIDs    []string    // ordered oldest -> newest
	EngagedCategories []string    // ordered oldest -> newest
	SkippedCategories []string    // ordered oldest -> newest
	EngagedEmbeddings [][]float32 // most recent semantic vectors, spec §4.7 caps at 48
	CardsShown        int
}

// MaxSessionHistory bounds engaged/skipped category lists and engaged IDs
// per spec §9 "Session context is append-only with bounded history."
const MaxSessionHistory = 200

// Bound truncates session history lists to MaxSessionHistory, keeping the
// most recent entries (the tail of an oldest->newest slice).
func Bound(items []string) []string {
	if len(items) <= MaxSessionHistory {
		return items
	}
	return items[len(items)-MaxSessionHistory:]
}

// Breakdown is a tagged record of the six per-signal scores that sum into a
// candidate's base score (spec §9 "Replace per-signal helper calls with a
// tagged record of scores").
type Breakdown struct {
	Engagement  float64
	Semantic    float64
	Session     float64
	TimePref    float64
	Freshness   float64
	Exploration float64
}

// RankingCandidate is one scored entry, produced by Score and consumed by
// the reranker and diversity pass.
type RankingCandidate struct {
	Entry       model.LibraryEntry
	BaseScore   float64
	RerankScore *float64
	FinalScore  float64
	Breakdown   Breakdown
	Features    map[string]float64
}

// Weights holds the six signal weights, always summing to 1 after
// DeriveWeights (spec §4.1 "Weight derivation").
type Weights struct {
	Engagement  float64
	Semantic    float64
	Session     float64
	TimePref    float64
	Freshness   float64
	Exploration float64
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	return w.Engagement + w.Semantic + w.Session + w.TimePref + w.Freshness + w.Exploration
}

// BaseWeights are the starting weights before any capability-driven
// mutation (spec §4.1).
var BaseWeights = Weights{
	Engagement:  0.30,
	Semantic:    0.25,
	Session:     0.20,
	TimePref:    0.10,
	Freshness:   0.10,
	Exploration: 0.05,
}
