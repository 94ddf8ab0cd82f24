package diversity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/ranking"
)

func candidate(id string, cats ...string) ranking.RankingCandidate {
	return ranking.RankingCandidate{Entry: model.LibraryEntry{ID: id, Categories: cats}}
}

func primaries(out []ranking.RankingCandidate) []string {
	cats := make([]string, len(out))
	for i, c := range out {
		cats[i] = c.Entry.PrimaryCategory()
	}
	return cats
}

func TestApply_EmptyInput(t *testing.T) {
	assert.Empty(t, Apply(nil))
}

func TestApply_NoTripleWhenAlternativeExists(t *testing.T) {
	in := []ranking.RankingCandidate{
		candidate("1", "Tech"),
		candidate("2", "Tech"),
		candidate("3", "Tech"),
		candidate("4", "AI"),
	}
	out := Apply(in)
	require.Len(t, out, 4)

	cats := primaries(out)
	for i := 0; i+2 < len(cats); i++ {
		assert.False(t, cats[i] == cats[i+1] && cats[i+1] == cats[i+2], "found triple at %d: %v", i, cats)
	}
}

func TestApply_AcceptsTripleWhenNoAlternativeInWindow(t *testing.T) {
	in := make([]ranking.RankingCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		in = append(in, candidate(string(rune('a'+i)), "Tech"))
	}
	out := Apply(in)
	require.Len(t, out, 10)
	assert.Equal(t, 10, len(primaries(out)))
}

func TestApply_PreservesAllInputItems(t *testing.T) {
	in := []ranking.RankingCandidate{
		candidate("1", "Tech"),
		candidate("2", "AI"),
		candidate("3", "Sports"),
	}
	out := Apply(in)
	require.Len(t, out, 3)

	ids := map[string]bool{}
	for _, c := range out {
		ids[c.Entry.ID] = true
	}
	assert.True(t, ids["1"] && ids["2"] && ids["3"])
}

func TestApply_EmptyPrimaryCategoryNeverBlocks(t *testing.T) {
	in := []ranking.RankingCandidate{
		candidate("1"),
		candidate("2"),
		candidate("3"),
	}
	out := Apply(in)
	require.Len(t, out, 3)
}

func TestApply_StableWhenAlreadyDiverse(t *testing.T) {
	in := []ranking.RankingCandidate{
		candidate("1", "Tech"),
		candidate("2", "AI"),
		candidate("3", "Sports"),
		candidate("4", "Tech"),
	}
	out := Apply(in)
	assert.Equal(t, []string{"1", "2", "3", "4"}, []string{out[0].Entry.ID, out[1].Entry.ID, out[2].Entry.ID, out[3].Entry.ID})
}
