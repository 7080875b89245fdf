package ensemble

import (
	"math"
	"math/rand/v2"
)

// Forest is a bagged ensemble of Gini-split trees voting by averaged leaf
// distributions.
type Forest struct {
	ClassCount int     `json:"classes"`
	Trees      []*Tree `json:"trees"`
}

// FitForest grows cfg.Trees trees, each on a bootstrap sample, with every
// split drawn from a random sqrt(p) feature subset.
func FitForest(x [][]float64, y []int, classes int, cfg Config) *Forest {
	cfg = cfg.sanitized()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	n := len(x)
	f := &Forest{ClassCount: classes}
	if n == 0 || classes == 0 {
		return f
	}

	sampleSize := n
	if cfg.Subsample < 1 {
		sampleSize = int(float64(n)*cfg.Subsample + 0.5)
		if sampleSize < 1 {
			sampleSize = 1
		}
	}

	mtry := int(math.Sqrt(float64(len(x[0]))))
	if mtry < 1 {
		mtry = 1
	}

	b := &treeBuilder{
		x:        x,
		yClass:   y,
		classes:  classes,
		maxDepth: cfg.MaxDepth,
		minLeaf:  cfg.MinLeaf,
		mtry:     mtry,
		rng:      rng,
	}

	f.Trees = make([]*Tree, 0, cfg.Trees)
	for t := 0; t < cfg.Trees; t++ {
		idx := make([]int, sampleSize)
		for i := range idx {
			idx[i] = rng.IntN(n)
		}
		f.Trees = append(f.Trees, &Tree{Root: b.grow(idx, 0)})
	}
	return f
}

// Predict averages the trees' leaf distributions.
func (f *Forest) Predict(x []float64) (int, []float64) {
	dist := make([]float64, f.ClassCount)
	if len(f.Trees) == 0 {
		return 0, dist
	}
	for _, t := range f.Trees {
		for c, p := range t.Dist(x) {
			dist[c] += p
		}
	}
	inv := 1 / float64(len(f.Trees))
	for c := range dist {
		dist[c] *= inv
	}
	return argmax(dist), dist
}

// Classes implements Classifier.
func (f *Forest) Classes() int { return f.ClassCount }
