package reranker

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleModel() *Model {
	return &Model{
		ModelType:    "xgboost_tree",
		Objective:    ObjectiveRankPairwise,
		Version:      "test-v1",
		BaseScore:    0.1,
		FeatureOrder: []string{"f_engagement", "f_freshness"},
		Trees: []Tree{
			{
				Nodes: []Node{
					{Left: 1, Right: 2, Feature: 0, Threshold: 0.5},
					{Left: -1, Right: -1, Leaf: -0.2},
					{Left: -1, Right: -1, Leaf: 0.3},
				},
			},
		},
	}
}

func TestModel_VectorOrdersByFeatureOrder(t *testing.T) {
	m := simpleModel()
	vec := m.Vector(map[string]float64{"f_freshness": 0.9, "f_engagement": 0.1})
	assert.Equal(t, []float64{0.1, 0.9}, vec)
}

func TestModel_VectorDefaultsMissingFeatureToZero(t *testing.T) {
	m := simpleModel()
	vec := m.Vector(map[string]float64{"f_engagement": 0.1})
	assert.Equal(t, []float64{0.1, 0}, vec)
}

func TestWalkTree_GoesLeftWhenBelowThreshold(t *testing.T) {
	m := simpleModel()
	margin := m.Margin([]float64{0.2, 0})
	assert.InDelta(t, 0.1-0.2, margin, 1e-9)
}

func TestWalkTree_GoesRightWhenAtOrAboveThreshold(t *testing.T) {
	m := simpleModel()
	margin := m.Margin([]float64{0.5, 0})
	assert.InDelta(t, 0.1+0.3, margin, 1e-9)
}

func TestWalkTree_NaNFeatureUsesDefaultLeft(t *testing.T) {
	m := &Model{
		BaseScore:    0,
		FeatureOrder: []string{"missing"},
		Trees: []Tree{
			{
				Nodes: []Node{
					{Left: 1, Right: 2, Feature: 5, Threshold: 0.5, DefaultLeft: true},
					{Left: -1, Right: -1, Leaf: 1.0},
					{Left: -1, Right: -1, Leaf: -1.0},
				},
			},
		},
	}
	margin := m.Margin([]float64{0})
	assert.Equal(t, 1.0, margin)
}

func TestWalkTree_CycleGuardReturnsZero(t *testing.T) {
	m := &Model{
		BaseScore:    0.5,
		FeatureOrder: []string{"f"},
		Trees: []Tree{
			{
				Nodes: []Node{
					{Left: 1, Right: 1, Feature: 0, Threshold: 0},
					{Left: 0, Right: 0, Feature: 0, Threshold: 0},
				},
			},
		},
	}
	margin := m.Margin([]float64{1})
	assert.Equal(t, 0.5, margin)
}

func TestModel_Score_BinaryLogisticAppliesSigmoid(t *testing.T) {
	m := &Model{
		Objective:    ObjectiveBinaryLogistic,
		BaseScore:    0,
		FeatureOrder: []string{"f"},
		Trees:        nil,
	}
	score := m.Score(map[string]float64{"f": 1})
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestLoadModel_MissingFeatureOrderErrors(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"modelType":"xgboost_tree","trees":[]}`), 0o644))

	_, err := LoadModel(path)
	assert.Error(t, err)
}
