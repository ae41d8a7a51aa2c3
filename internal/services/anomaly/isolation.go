package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// isoNode is one node of an isolation tree. Leaves carry the sample count
// that reached them so path lengths can be adjusted for unsplit subsets.
type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int
}

func (n *isoNode) isLeaf() bool { return n.left == nil }

// isolationForest isolates points by random axis-parallel splits; points
// that isolate in fewer splits score higher.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
	threshold  float64
	fitted     bool
}

func newIsolationForest() *isolationForest {
	return &isolationForest{}
}

// fit grows nEstimators trees on random subsamples and derives the anomaly
// threshold from the contamination quantile of the fitted population's own
// scores.
func (f *isolationForest) fit(data [][]float64, nEstimators, sampleSize int, contamination float64, rng *rand.Rand) error {
	if len(data) == 0 {
		return fmt.Errorf("empty fit data")
	}
	width := len(data[0])
	for _, row := range data {
		if len(row) != width {
			return fmt.Errorf("ragged fit data: row width %d, want %d", len(row), width)
		}
	}
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize)))) + 1

	f.trees = make([]*isoNode, 0, nEstimators)
	f.sampleSize = sampleSize
	for t := 0; t < nEstimators; t++ {
		sample := make([][]float64, sampleSize)
		for i := range sample {
			sample[i] = data[rng.Intn(len(data))]
		}
		f.trees = append(f.trees, growTree(sample, 0, maxDepth, rng))
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.score(row)
	}
	sort.Float64s(scores)
	idx := int(float64(len(scores)) * (1 - contamination))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.threshold = scores[idx]
	f.fitted = true
	return nil
}

// score returns the standard isolation score 2^(-E[h]/c(n)) in (0, 1].
func (f *isolationForest) score(row []float64) float64 {
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, row, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

func growTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(sample) <= 1 {
		return &isoNode{size: len(sample)}
	}
	width := len(sample[0])
	feature := rng.Intn(width)

	lo, hi := sample[0][feature], sample[0][feature]
	for _, row := range sample[1:] {
		v := row[feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return &isoNode{size: len(sample)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &isoNode{
		feature: feature,
		split:   split,
		left:    growTree(left, depth+1, maxDepth, rng),
		right:   growTree(right, depth+1, maxDepth, rng),
		size:    len(sample),
	}
}

func pathLength(n *isoNode, row []float64, depth int) float64 {
	if n.isLeaf() {
		return float64(depth) + avgPathLength(n.size)
	}
	if row[n.feature] < n.split {
		return pathLength(n.left, row, depth+1)
	}
	return pathLength(n.right, row, depth+1)
}

// avgPathLength is c(n), the mean path length of an unsuccessful BST
// search, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}
