package classify

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/ensemble"
	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// TrainerConfig bounds what counts as enough data and how fitting runs.
type TrainerConfig struct {
	Ensemble ensemble.Config
	MinRows  int     // labeled rows required before fitting at all
	Holdout  float64 // fraction reserved for the validation score
}

// DefaultTrainerConfig returns the training defaults.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Ensemble: ensemble.DefaultConfig(),
		MinRows:  20,
		Holdout:  0.2,
	}
}

// InsufficientDataError reports a corpus too small or too uniform to fit.
// Callers keep the previous model (or the heuristic) and ask for more
// labels.
type InsufficientDataError struct {
	Rows    int
	Classes int
	MinRows int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d labeled rows across 2 or more levels to train, have %d rows across %d",
		e.MinRows, e.Rows, e.Classes)
}

// Trainer fits models from the labeled corpus.
type Trainer struct {
	cfg TrainerConfig
	log *slog.Logger
}

// NewTrainer wires a trainer. A nil logger falls back to slog.Default.
func NewTrainer(cfg TrainerConfig, log *slog.Logger) *Trainer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MinRows <= 0 {
		cfg.MinRows = 20
	}
	if cfg.Ensemble.Kind == "" {
		cfg.Ensemble.Kind = ensemble.KindForest
	}
	return &Trainer{cfg: cfg, log: log}
}

// Train fits a model on the labeled subset of rows. The corpus
// fingerprint is stored on the artifact so callers can tell when labels
// changed since this fit.
func (t *Trainer) Train(rows []dataset.Row, fingerprint string) (*Model, error) {
	labeled := make([]dataset.Row, 0, len(rows))
	for _, r := range rows {
		if r.Labeled() {
			labeled = append(labeled, r)
		}
	}
	sort.Slice(labeled, func(i, j int) bool {
		if labeled[i].Doc != labeled[j].Doc {
			return labeled[i].Doc < labeled[j].Doc
		}
		return labeled[i].Block < labeled[j].Block
	})

	levels := distinctLevels(labeled)
	if len(labeled) < t.cfg.MinRows || len(levels) < 2 {
		return nil, &InsufficientDataError{Rows: len(labeled), Classes: len(levels), MinRows: t.cfg.MinRows}
	}

	classOf := make(map[outline.Level]int, len(levels))
	for i, l := range levels {
		classOf[l] = i
	}

	x := make([][]float64, len(labeled))
	y := make([]int, len(labeled))
	for i, r := range labeled {
		x[i] = r.Vec.Values()
		y[i] = classOf[r.Level]
	}

	trainIdx, holdIdx := stratifiedSplit(y, len(levels), t.cfg.Holdout, t.cfg.Ensemble.Seed)
	xt, yt := subset(x, y, trainIdx)

	cls, err := ensemble.Fit(xt, yt, len(levels), t.cfg.Ensemble)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, i := range holdIdx {
		if got, _ := cls.Predict(x[i]); got == y[i] {
			correct++
		}
	}
	acc := 0.0
	if len(holdIdx) > 0 {
		acc = float64(correct) / float64(len(holdIdx))
	}

	m := &Model{
		ID:               newModelID(),
		Kind:             t.cfg.Ensemble.Kind,
		SchemaVersion:    feature.SchemaVersion,
		Features:         feature.Names(),
		Levels:           levels,
		Seed:             t.cfg.Ensemble.Seed,
		RowCount:         len(labeled),
		HoldoutRows:      len(holdIdx),
		Accuracy:         acc,
		LabelFingerprint: fingerprint,
		TrainedAt:        time.Now().UTC(),
	}
	switch c := cls.(type) {
	case *ensemble.Forest:
		m.Forest = c
	case *ensemble.Boosting:
		m.Boosting = c
	}

	t.log.Info("model trained",
		"model_id", m.ID,
		"kind", string(m.Kind),
		"rows", m.RowCount,
		"holdout_rows", m.HoldoutRows,
		"accuracy", m.Accuracy,
		"levels", len(m.Levels),
	)
	return m, nil
}

func distinctLevels(rows []dataset.Row) []outline.Level {
	seen := make(map[outline.Level]struct{})
	for _, r := range rows {
		seen[r.Level] = struct{}{}
	}
	levels := make([]outline.Level, 0, len(seen))
	for l := range seen {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// stratifiedSplit reserves a holdout fraction from every class, so small
// classes are never absent from training. Both halves come back sorted.
func stratifiedSplit(y []int, classes int, holdout float64, seed uint64) (train, hold []int) {
	if holdout <= 0 {
		train = make([]int, len(y))
		for i := range train {
			train[i] = i
		}
		return train, nil
	}
	if holdout > 0.5 {
		holdout = 0.5
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	byClass := make([][]int, classes)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		k := int(float64(len(idx)) * holdout)
		if k >= len(idx) {
			k = len(idx) - 1
		}
		if k < 0 {
			k = 0
		}
		hold = append(hold, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	sort.Ints(train)
	sort.Ints(hold)
	return train, hold
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
