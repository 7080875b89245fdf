package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Node is one vertex of a decision tree. Interior nodes route on
// x[Feature] <= Threshold; leaves have Feature == -1 and carry either a
// class distribution or a regression value.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      *Node     `json:"l,omitempty"`
	Right     *Node     `json:"r,omitempty"`
	Dist      []float64 `json:"d,omitempty"`
	Value     float64   `json:"v,omitempty"`
}

// Tree is a single fitted decision tree.
type Tree struct {
	Root *Node `json:"root"`
}

func (t *Tree) leaf(x []float64) *Node {
	n := t.Root
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n
}

// Dist returns the leaf class distribution for x.
func (t *Tree) Dist(x []float64) []float64 { return t.leaf(x).Dist }

// Value returns the leaf regression value for x.
func (t *Tree) Value(x []float64) float64 { return t.leaf(x).Value }

// treeBuilder grows CART trees over row indices into a shared matrix.
// With classes > 0 it minimizes Gini impurity over yClass; otherwise it
// minimizes variance over yValue.
type treeBuilder struct {
	x        [][]float64
	yClass   []int
	yValue   []float64
	classes  int
	maxDepth int
	minLeaf  int
	mtry     int // candidate features per split; 0 means all
	rng      *rand.Rand
}

func (b *treeBuilder) grow(idx []int, depth int) *Node {
	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf || b.pure(idx) {
		return b.leafFor(idx)
	}

	feat, thr, ok := b.bestSplit(idx)
	if !ok {
		return b.leafFor(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return b.leafFor(idx)
	}

	return &Node{
		Feature:   feat,
		Threshold: thr,
		Left:      b.grow(left, depth+1),
		Right:     b.grow(right, depth+1),
	}
}

func (b *treeBuilder) pure(idx []int) bool {
	if b.classes > 0 {
		first := b.yClass[idx[0]]
		for _, i := range idx[1:] {
			if b.yClass[i] != first {
				return false
			}
		}
		return true
	}
	first := b.yValue[idx[0]]
	for _, i := range idx[1:] {
		if b.yValue[i] != first {
			return false
		}
	}
	return true
}

func (b *treeBuilder) leafFor(idx []int) *Node {
	if b.classes > 0 {
		dist := make([]float64, b.classes)
		for _, i := range idx {
			dist[b.yClass[i]]++
		}
		total := float64(len(idx))
		for c := range dist {
			dist[c] /= total
		}
		return &Node{Feature: -1, Dist: dist}
	}
	sum := 0.0
	for _, i := range idx {
		sum += b.yValue[i]
	}
	return &Node{Feature: -1, Value: sum / float64(len(idx))}
}

type splitPoint struct {
	v float64
	c int
	t float64
}

// bestSplit scans candidate features in ascending order and keeps the
// first split with the lowest weighted child impurity. Ties resolve to
// the earliest candidate, which keeps fitting deterministic.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	points := make([]splitPoint, n)

	parent := b.impurityAll(idx)
	bestFeat, bestThr := -1, 0.0
	bestScore := math.Inf(1)

	for _, f := range b.candidateFeatures() {
		for j, i := range idx {
			points[j].v = b.x[i][f]
			if b.classes > 0 {
				points[j].c = b.yClass[i]
			} else {
				points[j].t = b.yValue[i]
			}
		}
		sort.Slice(points, func(a, c int) bool { return points[a].v < points[c].v })
		if points[0].v == points[n-1].v {
			continue
		}

		if b.classes > 0 {
			leftCount := make([]int, b.classes)
			rightCount := make([]int, b.classes)
			for _, p := range points {
				rightCount[p.c]++
			}
			for j := 0; j < n-1; j++ {
				leftCount[points[j].c]++
				rightCount[points[j].c]--
				if points[j].v == points[j+1].v {
					continue
				}
				nl, nr := j+1, n-j-1
				if nl < b.minLeaf || nr < b.minLeaf {
					continue
				}
				score := (float64(nl)*gini(leftCount, nl) + float64(nr)*gini(rightCount, nr)) / float64(n)
				if score < bestScore {
					bestScore = score
					bestFeat = f
					bestThr = (points[j].v + points[j+1].v) / 2
				}
			}
		} else {
			var leftSum, leftSq, rightSum, rightSq float64
			for _, p := range points {
				rightSum += p.t
				rightSq += p.t * p.t
			}
			for j := 0; j < n-1; j++ {
				t := points[j].t
				leftSum += t
				leftSq += t * t
				rightSum -= t
				rightSq -= t * t
				if points[j].v == points[j+1].v {
					continue
				}
				nl, nr := j+1, n-j-1
				if nl < b.minLeaf || nr < b.minLeaf {
					continue
				}
				score := (float64(nl)*variance(leftSum, leftSq, nl) + float64(nr)*variance(rightSum, rightSq, nr)) / float64(n)
				if score < bestScore {
					bestScore = score
					bestFeat = f
					bestThr = (points[j].v + points[j+1].v) / 2
				}
			}
		}
	}

	if bestFeat < 0 || bestScore >= parent-1e-12 {
		return 0, 0, false
	}
	return bestFeat, bestThr, true
}

func (b *treeBuilder) impurityAll(idx []int) float64 {
	if b.classes > 0 {
		counts := make([]int, b.classes)
		for _, i := range idx {
			counts[b.yClass[i]]++
		}
		return gini(counts, len(idx))
	}
	var sum, sq float64
	for _, i := range idx {
		v := b.yValue[i]
		sum += v
		sq += v * v
	}
	return variance(sum, sq, len(idx))
}

func (b *treeBuilder) candidateFeatures() []int {
	p := len(b.x[0])
	if b.mtry <= 0 || b.mtry >= p {
		feats := make([]int, p)
		for i := range feats {
			feats[i] = i
		}
		return feats
	}
	feats := b.rng.Perm(p)[:b.mtry]
	sort.Ints(feats)
	return feats
}

func gini(counts []int, n int) float64 {
	g := 1.0
	fn := float64(n)
	for _, c := range counts {
		p := float64(c) / fn
		g -= p * p
	}
	return g
}

func variance(sum, sumSq float64, n int) float64 {
	fn := float64(n)
	m := sum / fn
	v := sumSq/fn - m*m
	if v < 0 {
		return 0
	}
	return v
}
