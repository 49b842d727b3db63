package ml

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one split or leaf of a decision tree. Leaves have Left == -1.
// Value holds class fractions for classification trees and a single mean for
// regression trees.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

// Tree is a fitted CART tree stored as a flat node slice, root at index 0
type Tree struct {
	Nodes []Node
}

func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeParams struct {
	maxFeatures     int
	minSamplesSplit int
	maxDepth        int // 0 means unlimited
}

// treeBuilder grows a single tree. Exactly one of classes/targets is used.
type treeBuilder struct {
	X       [][]float64
	classes []int
	nClass  int
	targets []float64
	params  treeParams
	rng     *rand.Rand
	tree    *Tree
}

func (b *treeBuilder) regression() bool {
	return b.targets != nil
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Left: -1, Right: -1, Value: b.leafValue(idx)})

	if len(idx) < b.params.minSamplesSplit || (b.params.maxDepth > 0 && depth >= b.params.maxDepth) || b.pure(idx) {
		return id
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	n := &b.tree.Nodes[id]
	n.Feature = feature
	n.Threshold = threshold
	n.Left = l
	n.Right = r
	n.Value = nil
	return id
}

func (b *treeBuilder) leafValue(idx []int) []float64 {
	if b.regression() {
		var sum float64
		for _, i := range idx {
			sum += b.targets[i]
		}
		return []float64{sum / float64(len(idx))}
	}
	value := make([]float64, b.nClass)
	for _, i := range idx {
		value[b.classes[i]]++
	}
	for c := range value {
		value[c] /= float64(len(idx))
	}
	return value
}

func (b *treeBuilder) pure(idx []int) bool {
	for _, i := range idx[1:] {
		if b.regression() {
			if b.targets[i] != b.targets[idx[0]] {
				return false
			}
		} else if b.classes[i] != b.classes[idx[0]] {
			return false
		}
	}
	return true
}

// bestSplit draws features in random order and keeps drawing past
// maxFeatures until at least one valid split has been seen.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	width := len(b.X[idx[0]])
	best := math.Inf(1)
	sorted := make([]int, len(idx))
	for tried, f := range b.rng.Perm(width) {
		if tried >= b.params.maxFeatures && ok {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		cost, thr, found := b.scan(sorted, f)
		if found && cost < best {
			best, feature, threshold, ok = cost, f, thr, true
		}
	}
	return feature, threshold, ok
}

// scan sweeps the split position along samples sorted by feature f and returns
// the lowest weighted child impurity.
func (b *treeBuilder) scan(sorted []int, f int) (float64, float64, bool) {
	n := len(sorted)
	best := math.Inf(1)
	var threshold float64
	found := false

	if b.regression() {
		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.targets[i]
			totalSq += b.targets[i] * b.targets[i]
		}
		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			y := b.targets[sorted[k]]
			leftSum += y
			leftSq += y * y
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			cost := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if cost < best {
				best, threshold, found = cost, midpoint(lo, hi), true
			}
		}
		return best, threshold, found
	}

	total := make([]float64, b.nClass)
	for _, i := range sorted {
		total[b.classes[i]]++
	}
	left := make([]float64, b.nClass)
	for k := 0; k < n-1; k++ {
		left[b.classes[sorted[k]]]++
		lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
		if lo == hi {
			continue
		}
		nl, nr := float64(k+1), float64(n-k-1)
		var gl, gr float64
		for c := range total {
			pl := left[c] / nl
			pr := (total[c] - left[c]) / nr
			gl += pl * pl
			gr += pr * pr
		}
		cost := nl*(1-gl) + nr*(1-gr)
		if cost < best {
			best, threshold, found = cost, midpoint(lo, hi), true
		}
	}
	return best, threshold, found
}

// midpoint between two adjacent distinct values, never rounding up to hi
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}
