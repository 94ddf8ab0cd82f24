// Package reranker loads a tree-ensemble model (XGBoost booster-dump JSON)
// and blends its score with a candidate's heuristic base score (spec §4.2).
package reranker

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Node is one split or leaf in a tree. Leaf nodes have Left == Right == -1.
type Node struct {
	Left         int     `json:"left"`
	Right        int     `json:"right"`
	Feature      int     `json:"feature"`
	Threshold    float64 `json:"threshold"`
	DefaultLeft  bool    `json:"defaultLeft"`
	Leaf         float64 `json:"leaf"`
}

func (n Node) isLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is one booster tree, indexed from node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// maxWalkSteps guards against a malformed or cyclic tree causing an
// unbounded walk (spec §4.2 "Guard against cycles with a bound (e.g. 2048
// steps) returning 0").
const maxWalkSteps = 2048

// Objective constrains the supported model objectives (spec §4.2).
type Objective string

const (
	ObjectiveBinaryLogistic Objective = "binary:logistic"
	ObjectiveSquaredError   Objective = "reg:squarederror"
	ObjectiveRankPairwise   Objective = "rank:pairwise"
)

// Model is the runtime representation of a tree-ensemble model, as emitted
// by scripts/train_reranker.py.
type Model struct {
	ModelType    string    `json:"modelType"`
	Objective    Objective `json:"objective"`
	Version      string    `json:"version"`
	BaseScore    float64   `json:"baseScore"`
	FeatureOrder []string  `json:"featureOrder"`
	Trees        []Tree    `json:"trees"`
}

// LoadModel reads and decodes a model JSON file from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reranker: read model %q: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("reranker: decode model %q: %w", path, err)
	}
	if len(m.FeatureOrder) == 0 {
		return nil, fmt.Errorf("reranker: model %q has no featureOrder", path)
	}
	return &m, nil
}

// Vector builds the ordered input vector for one candidate's feature map,
// per spec §4.2 "featureOrder.map(name -> features[name] ?? 0)".
func (m *Model) Vector(features map[string]float64) []float64 {
	vec := make([]float64, len(m.FeatureOrder))
	for i, name := range m.FeatureOrder {
		vec[i] = features[name]
	}
	return vec
}

// Margin walks every tree for the given feature vector and sums the leaf
// values onto BaseScore (spec §4.2 "Margin = baseScore + sum(treeLeaves)").
func (m *Model) Margin(vec []float64) float64 {
	margin := m.BaseScore
	for _, t := range m.Trees {
		margin += walkTree(t, vec)
	}
	return margin
}

func walkTree(t Tree, vec []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}

	idx := 0
	for step := 0; step < maxWalkSteps; step++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0
		}
		node := t.Nodes[idx]
		if node.isLeaf() {
			return node.Leaf
		}

		var value float64
		if node.Feature >= 0 && node.Feature < len(vec) {
			value = vec[node.Feature]
		} else {
			value = math.NaN()
		}

		if math.IsNaN(value) {
			if node.DefaultLeft {
				idx = node.Left
			} else {
				idx = node.Right
			}
			continue
		}

		if value < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0
}

// Score evaluates the model for one candidate, applying the sigmoid
// transform when the objective is binary:logistic (spec §4.2).
func (m *Model) Score(features map[string]float64) float64 {
	margin := m.Margin(m.Vector(features))
	if m.Objective == ObjectiveBinaryLogistic {
		return sigmoid(margin)
	}
	return margin
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
