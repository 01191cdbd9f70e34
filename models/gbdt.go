package models

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// Least-squares gradient boosting over depth-limited regression trees.
// Trees split on the best variance reduction; each round fits the residual
// of the ensemble so far, scaled by the learning rate.

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type gbdtParams struct {
	nEstimators    int
	learningRate   float64
	maxDepth       int
	minSamplesLeaf int
	subsample      float64
}

type gbdt struct {
	params    gbdtParams
	baseScore float64
	trees     []*treeNode
}

func fitGBDT(X [][]float64, y []float64, params gbdtParams, rng *rand.Rand) (*gbdt, error) {
	n := len(y)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "gbdt")
	}

	var base float64
	for _, v := range y {
		base += v
	}
	base /= float64(n)

	g := &gbdt{params: params, baseScore: base}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}

	residual := make([]float64, n)
	for round := 0; round < params.nEstimators; round++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		indices := sampleIndices(n, params.subsample, rng)
		tree := buildTree(X, residual, indices, 0, params)
		g.trees = append(g.trees, tree)

		for i := range pred {
			pred[i] += params.learningRate * tree.predict(X[i])
		}
	}
	return g, nil
}

func (g *gbdt) predict(row []float64) float64 {
	out := g.baseScore
	for _, tree := range g.trees {
		out += g.params.learningRate * tree.predict(row)
	}
	return out
}

func sampleIndices(n int, subsample float64, rng *rand.Rand) []int {
	if subsample >= 1 {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	k := int(subsample * float64(n))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	return perm[:k]
}

func buildTree(X [][]float64, residual []float64, indices []int, depth int, params gbdtParams) *treeNode {
	if depth >= params.maxDepth || len(indices) < 2*params.minSamplesLeaf {
		return leafNode(residual, indices)
	}

	feature, threshold, gain := bestSplit(X, residual, indices, params.minSamplesLeaf)
	if gain <= 0 {
		return leafNode(residual, indices)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(X, residual, left, depth+1, params),
		right:     buildTree(X, residual, right, depth+1, params),
	}
}

func leafNode(residual []float64, indices []int) *treeNode {
	var sum float64
	for _, i := range indices {
		sum += residual[i]
	}
	value := 0.0
	if len(indices) > 0 {
		value = sum / float64(len(indices))
	}
	return &treeNode{leaf: true, value: value}
}

// bestSplit scans every feature for the threshold with the largest reduction
// in the sum of squared residuals.
func bestSplit(X [][]float64, residual []float64, indices []int, minLeaf int) (feature int, threshold, gain float64) {
	nFeatures := len(X[indices[0]])

	var totalSum, totalSq float64
	for _, i := range indices {
		totalSum += residual[i]
		totalSq += residual[i] * residual[i]
	}
	total := float64(len(indices))
	parentSSE := totalSq - totalSum*totalSum/total

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := math.NaN()

	sorted := make([]splitPair, len(indices))

	for f := 0; f < nFeatures; f++ {
		for k, i := range indices {
			sorted[k] = splitPair{X[i][f], residual[i]}
		}
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].x < sorted[b].x })

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			leftSum += sorted[k].r
			leftSq += sorted[k].r * sorted[k].r
			nLeft := float64(k + 1)
			nRight := total - nLeft
			if k+1 < minLeaf || int(nRight) < minLeaf {
				continue
			}
			if sorted[k].x == sorted[k+1].x {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nLeft) + (rightSq - rightSum*rightSum/nRight)
			if g := parentSSE - sse; g > bestGain {
				bestGain = g
				bestFeature = f
				bestThreshold = (sorted[k].x + sorted[k+1].x) / 2
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}

type splitPair struct{ x, r float64 }
