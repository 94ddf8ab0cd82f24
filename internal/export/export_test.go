package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfline/feedengine/internal/storage"
)

func intPtr(v int) *int { return &v }

func TestReward_ZeroForUnservedCandidate(t *testing.T) {
	r := storage.ExportRow{
		ServedRank: nil,
		OpenCount:  1,
		MaxDwellMs: 60000,
		Liked:      true,
	}
	assert.Equal(t, 0.0, reward(r))
}

func TestReward_OpenOnlyYieldsOpenWeight(t *testing.T) {
	r := storage.ExportRow{
		ServedRank: intPtr(1),
		OpenCount:  1,
	}
	assert.InDelta(t, 0.6, reward(r), 1e-9)
}

func TestReward_FullDwellAddsDwellWeight(t *testing.T) {
	r := storage.ExportRow{
		ServedRank: intPtr(1),
		OpenCount:  1,
		MaxDwellMs: 45000,
	}
	assert.InDelta(t, 0.95, reward(r), 1e-9)
}

func TestReward_LikedBonusApplies(t *testing.T) {
	r := storage.ExportRow{
		ServedRank: intPtr(1),
		Liked:      true,
	}
	assert.InDelta(t, 0.35, reward(r), 1e-9)
}

func TestReward_FastSkipPenalizes(t *testing.T) {
	withoutSkip := storage.ExportRow{ServedRank: intPtr(1), OpenCount: 1, MaxDwellMs: 45000}
	withSkip := storage.ExportRow{ServedRank: intPtr(1), OpenCount: 1, MaxDwellMs: 45000, FastSkipCount: 1}
	assert.Greater(t, reward(withoutSkip), reward(withSkip))
	assert.InDelta(t, reward(withoutSkip)-0.3, reward(withSkip), 1e-9)
}

func TestReward_ClampedToZeroFloor(t *testing.T) {
	r := storage.ExportRow{
		ServedRank:    intPtr(1),
		FastSkipCount: 1,
	}
	assert.Equal(t, 0.0, reward(r))
}

func TestReward_ClampedToOneCeiling(t *testing.T) {
	r := storage.ExportRow{
		ServedRank: intPtr(1),
		OpenCount:  1,
		MaxDwellMs: 1000000,
		Liked:      true,
	}
	assert.Equal(t, 1.0, reward(r))
}

func TestToRecord_CarriesFeedRequestAndCandidateRank(t *testing.T) {
	r := storage.ExportRow{
		FeedRequestID: "fr1",
		CandidateRank: 3,
		ServedRank:    intPtr(3),
		OpenCount:     1,
		MaxDwellMs:    45000,
	}
	rec := toRecord(r)
	assert.Equal(t, "fr1", rec.FeedRequestID)
	assert.Equal(t, 3, rec.CandidateRank)
	assert.InDelta(t, 0.95, rec.Reward, 1e-9)
}

func TestToRecord_CarriesEngagementAggregates(t *testing.T) {
	r := storage.ExportRow{
		ServedRank:    intPtr(1),
		OpenCount:     2,
		MaxDwellMs:    45000,
		AvgDwellMs:    12000,
		FastSkipCount: 1,
	}
	rec := toRecord(r)
	assert.Equal(t, 2, rec.OpenCount)
	assert.Equal(t, 45000.0, rec.MaxDwellMs)
	assert.Equal(t, 12000.0, rec.AvgDwellMs)
	assert.Equal(t, 1, rec.FastSkipCount)
}
