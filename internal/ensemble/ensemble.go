// Package ensemble implements seeded decision-tree ensembles: bagged
// random forests and gradient-boosted trees. Fitting is deterministic for
// a given configuration and seed, so retraining on the same corpus always
// reproduces the same model.
package ensemble

import "fmt"

// Kind selects the ensemble family.
type Kind string

const (
	KindForest   Kind = "forest"
	KindBoosting Kind = "boosting"
)

// ParseKind validates a configured kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindForest, KindBoosting:
		return Kind(s), nil
	case "":
		return KindForest, nil
	}
	return "", fmt.Errorf("unknown ensemble kind %q", s)
}

// Config controls ensemble fitting.
type Config struct {
	Kind         Kind
	Trees        int     // trees in a forest, rounds in boosting
	MaxDepth     int     // split depth cap
	MinLeaf      int     // minimum rows per leaf
	LearningRate float64 // boosting shrinkage
	Subsample    float64 // fraction of rows each tree sees
	Seed         uint64
}

// DefaultConfig returns the fitting defaults.
func DefaultConfig() Config {
	return Config{
		Kind:         KindForest,
		Trees:        200,
		MaxDepth:     12,
		MinLeaf:      1,
		LearningRate: 0.1,
		Subsample:    1.0,
		Seed:         42,
	}
}

func (c Config) sanitized() Config {
	if c.Trees <= 0 {
		c.Trees = 200
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 12
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 1
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.Subsample <= 0 || c.Subsample > 1 {
		c.Subsample = 1
	}
	return c
}

// Classifier is a fitted ensemble.
type Classifier interface {
	// Predict returns the winning class index and the full probability
	// distribution for one feature vector.
	Predict(x []float64) (int, []float64)
	// Classes is the number of classes the model was fitted on.
	Classes() int
}

// Fit dispatches on cfg.Kind.
func Fit(x [][]float64, y []int, classes int, cfg Config) (Classifier, error) {
	switch cfg.Kind {
	case KindForest, "":
		return FitForest(x, y, classes, cfg), nil
	case KindBoosting:
		return FitBoosting(x, y, classes, cfg), nil
	}
	return nil, fmt.Errorf("unknown ensemble kind %q", cfg.Kind)
}

// argmax breaks ties toward the lowest class index.
func argmax(dist []float64) int {
	best := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] > dist[best] {
			best = i
		}
	}
	return best
}
