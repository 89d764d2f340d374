package overunder

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const leaf = -1

type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// regressionTree is a CART tree stored as a flat node slice; node 0 is the root.
type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x           [][]float64
	y           []float64
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	tree        *regressionTree
	importance  []float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	ys := make([]float64, len(idx))
	for i, j := range idx {
		ys[i] = b.y[j]
	}
	mean, variance := stat.PopMeanVariance(ys, nil)

	self := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, treeNode{Left: leaf, Right: leaf, Value: mean})
	if depth >= b.maxDepth || len(idx) < b.minSplit || variance <= 1e-12 {
		return self
	}

	feature, threshold, gain, ok := b.bestSplit(idx, variance*float64(len(idx)))
	if !ok {
		return self
	}

	var left, right []int
	for _, j := range idx {
		if b.x[j][feature] <= threshold {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}
	b.importance[feature] += gain

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Nodes[self].Feature = feature
	b.tree.Nodes[self].Threshold = threshold
	b.tree.Nodes[self].Left = l
	b.tree.Nodes[self].Right = r
	return self
}

// bestSplit scans a random feature subset for the threshold with the largest
// reduction in squared error.
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (int, float64, float64, bool) {
	nFeatures := len(b.x[0])
	candidates := b.rng.Perm(nFeatures)[:b.maxFeatures]

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	order := make([]int, len(idx))
	for _, f := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

		total, totalSq := 0.0, 0.0
		for _, j := range order {
			total += b.y[j]
			totalSq += b.y[j] * b.y[j]
		}

		leftSum, leftSq := 0.0, 0.0
		n := float64(len(order))
		for i := 0; i < len(order)-1; i++ {
			yj := b.y[order[i]]
			leftSum += yj
			leftSq += yj * yj

			cur, next := b.x[order[i]][f], b.x[order[i+1]][f]
			if cur == next {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, (cur+next)/2, gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain, bestFeature >= 0
}

// forest is a bagged ensemble of regression trees.
type forest struct {
	Trees       []regressionTree `json:"trees"`
	Importances []float64        `json:"importances"`
}

func fitForest(x [][]float64, y []float64, cfg ModelConfig) *forest {
	rng := rand.New(rand.NewSource(cfg.Seed))
	nFeatures := len(x[0])
	maxFeatures := cfg.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	f := &forest{Trees: make([]regressionTree, cfg.Trees)}
	importance := make([]float64, nFeatures)
	for t := range f.Trees {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.Intn(len(x))
		}
		b := &treeBuilder{
			x:           x,
			y:           y,
			maxDepth:    cfg.MaxDepth,
			minSplit:    cfg.MinSamplesSplit,
			maxFeatures: maxFeatures,
			rng:         rand.New(rand.NewSource(rng.Int63())),
			tree:        &regressionTree{},
			importance:  make([]float64, nFeatures),
		}
		b.build(sample, 0)
		f.Trees[t] = *b.tree

		if sum := floats.Sum(b.importance); sum > 0 {
			floats.Scale(1/sum, b.importance)
			floats.Add(importance, b.importance)
		}
	}
	if sum := floats.Sum(importance); sum > 0 {
		floats.Scale(1/sum, importance)
	}
	f.Importances = importance
	return f
}

// predictTrees returns each tree's estimate for x.
func (f *forest) predictTrees(x []float64) []float64 {
	out := make([]float64, len(f.Trees))
	for i := range f.Trees {
		out[i] = f.Trees[i].predict(x)
	}
	return out
}

// confidence is one minus the coefficient of variation of the per-tree
// estimates, clamped to [0, 1].
func confidence(perTree []float64) float64 {
	mean, std := stat.PopMeanStdDev(perTree, nil)
	if mean == 0 || math.IsNaN(mean) {
		return 0
	}
	c := 1 - std/mean
	return math.Max(0, math.Min(1, c))
}
