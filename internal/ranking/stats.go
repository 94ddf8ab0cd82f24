package ranking

import "github.com/shelfline/feedengine/internal/model"

// CategoryBandit accumulates per-category engagement for the UCB
// exploration signal (spec §4.1 "Dataset statistics").
type CategoryBandit struct {
	Shown         int
	EngagementSum float64
}

// DatasetStats are built once per request over the candidate set. Because
// contentTypeMeans is derived from the candidate set of the *current*
// request rather than a global rolling statistic, its value varies with
// the query (e.g. a category filter changes which entries contribute to
// the mean). This is intentional per spec §9's first Open Question; tests
// pin this locality explicitly rather than leaving it as an accident of
// implementation.
type DatasetStats struct {
	TotalShown           int
	GlobalEngagementMean float64
	ContentTypeMeans     map[model.ContentType]float64
	CategoryBandits      map[string]CategoryBandit
}

// BuildDatasetStats computes DatasetStats over candidates, per spec §4.1.
func BuildDatasetStats(candidates []model.LibraryEntry) DatasetStats {
	stats := DatasetStats{
		ContentTypeMeans: map[model.ContentType]float64{},
		CategoryBandits:  map[string]CategoryBandit{},
	}

	typeWeightedSum := map[model.ContentType]float64{}
	typeShown := map[model.ContentType]int{}

	var engagementWeightedSum float64
	for _, e := range candidates {
		if e.ShownCount <= 0 {
			continue
		}
		stats.TotalShown += e.ShownCount
		score := model.Clamp01(e.EngagementScore)
		engagementWeightedSum += score * float64(e.ShownCount)

		typeWeightedSum[e.ContentType] += score * float64(e.ShownCount)
		typeShown[e.ContentType] += e.ShownCount

		for _, cat := range e.Categories {
			b := stats.CategoryBandits[cat]
			b.Shown += e.ShownCount
			b.EngagementSum += score * float64(e.ShownCount)
			stats.CategoryBandits[cat] = b
		}
	}

	if stats.TotalShown > 0 {
		stats.GlobalEngagementMean = engagementWeightedSum / float64(stats.TotalShown)
	} else {
		stats.GlobalEngagementMean = 0.5
	}

	for ct, shown := range typeShown {
		if shown > 0 {
			stats.ContentTypeMeans[ct] = typeWeightedSum[ct] / float64(shown)
		}
	}

	return stats
}

// TypeMean returns the content-type mean for ct, falling back to the
// global engagement mean when ct has no observed shown entries.
func (s DatasetStats) TypeMean(ct model.ContentType) float64 {
	if m, ok := s.ContentTypeMeans[ct]; ok {
		return m
	}
	return s.GlobalEngagementMean
}

// CategoryShown returns the total shown count observed for a category
// across the candidate set, for the UCB categoryNovelty term.
func (s DatasetStats) CategoryShown(cat string) int {
	return s.CategoryBandits[cat].Shown
}

// CategoryPrior is the mean engagement observed for a category, used as
// the cold-start meanEstimate fallback in the exploration signal.
func (s DatasetStats) CategoryPrior(categories []string) float64 {
	if len(categories) == 0 {
		return s.GlobalEngagementMean
	}
	var sum float64
	var n int
	for _, cat := range categories {
		if b, ok := s.CategoryBandits[cat]; ok && b.Shown > 0 {
			sum += b.EngagementSum / float64(b.Shown)
			n++
		}
	}
	if n == 0 {
		return s.GlobalEngagementMean
	}
	return sum / float64(n)
}
