package ensemble

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"
)

// Boosting is a gradient-boosted ensemble for multiclass softmax loss:
// each round fits one regression tree per class to the probability
// residuals and adds it with shrinkage.
type Boosting struct {
	ClassCount int       `json:"classes"`
	Rate       float64   `json:"rate"`
	Base       []float64 `json:"base"`   // initial per-class score (log prior)
	Rounds     [][]*Tree `json:"rounds"` // [round][class]
}

// FitBoosting runs cfg.Trees boosting rounds.
func FitBoosting(x [][]float64, y []int, classes int, cfg Config) *Boosting {
	cfg = cfg.sanitized()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	n := len(x)

	m := &Boosting{ClassCount: classes, Rate: cfg.LearningRate}
	if n == 0 || classes == 0 {
		return m
	}

	m.Base = make([]float64, classes)
	counts := make([]float64, classes)
	for _, c := range y {
		counts[c]++
	}
	for c := range m.Base {
		p := counts[c] / float64(n)
		if p < 1e-9 {
			p = 1e-9
		}
		m.Base[c] = math.Log(p)
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = slices.Clone(m.Base)
	}

	resid := make([]float64, n)
	b := &treeBuilder{
		x:        x,
		yValue:   resid,
		maxDepth: cfg.MaxDepth,
		minLeaf:  cfg.MinLeaf,
		rng:      rng,
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for round := 0; round < cfg.Trees; round++ {
		idx := all
		if cfg.Subsample < 1 {
			idx = sampleRows(rng, n, cfg.Subsample)
		}

		probs := make([][]float64, n)
		for i := range probs {
			probs[i] = softmax(scores[i])
		}

		roundTrees := make([]*Tree, classes)
		for c := 0; c < classes; c++ {
			for i := 0; i < n; i++ {
				target := 0.0
				if y[i] == c {
					target = 1
				}
				resid[i] = target - probs[i][c]
			}
			tree := &Tree{Root: b.grow(idx, 0)}
			roundTrees[c] = tree
			for i := 0; i < n; i++ {
				scores[i][c] += m.Rate * tree.Value(x[i])
			}
		}
		m.Rounds = append(m.Rounds, roundTrees)
	}
	return m
}

// Predict sums the rounds' contributions and normalizes with softmax.
func (m *Boosting) Predict(x []float64) (int, []float64) {
	if m.ClassCount == 0 {
		return 0, nil
	}
	scores := slices.Clone(m.Base)
	if scores == nil {
		scores = make([]float64, m.ClassCount)
	}
	for _, round := range m.Rounds {
		for c, tree := range round {
			scores[c] += m.Rate * tree.Value(x)
		}
	}
	dist := softmax(scores)
	return argmax(dist), dist
}

// Classes implements Classifier.
func (m *Boosting) Classes() int { return m.ClassCount }

// sampleRows draws a sorted sample without replacement.
func sampleRows(rng *rand.Rand, n int, frac float64) []int {
	k := int(float64(n)*frac + 0.5)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(s - max)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
