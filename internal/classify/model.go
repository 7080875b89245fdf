// Package classify fits, persists, and applies the block-level structure
// classifier, with a typography heuristic as the untrained fallback.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/ensemble"
	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// ErrSchemaMismatch marks a model artifact that cannot be applied to the
// current feature schema. Retraining is the only fix.
var ErrSchemaMismatch = errors.New("model schema mismatch")

// Model is a fitted classifier plus the provenance needed to trust it:
// the feature schema it expects and the label fingerprint it was trained
// against.
type Model struct {
	ID               string          `json:"id"`
	Kind             ensemble.Kind   `json:"kind"`
	SchemaVersion    int             `json:"schema_version"`
	Features         []string        `json:"features"`
	Levels           []outline.Level `json:"levels"` // class index -> level
	Seed             uint64          `json:"seed"`
	RowCount         int             `json:"row_count"`
	HoldoutRows      int             `json:"holdout_rows"`
	Accuracy         float64         `json:"accuracy"`
	LabelFingerprint string          `json:"label_fingerprint"`
	TrainedAt        time.Time       `json:"trained_at"`

	Forest   *ensemble.Forest   `json:"forest,omitempty"`
	Boosting *ensemble.Boosting `json:"boosting,omitempty"`
}

func (m *Model) classifier() ensemble.Classifier {
	if m.Boosting != nil {
		return m.Boosting
	}
	if m.Forest != nil {
		return m.Forest
	}
	return nil
}

// Predict classifies one block's features, returning the level and the
// model's probability for it.
func (m *Model) Predict(vec feature.Vector) (outline.Level, float64) {
	cls := m.classifier()
	if cls == nil {
		return outline.None, 0
	}
	class, dist := cls.Predict(vec.Values())
	if class < 0 || class >= len(m.Levels) {
		return outline.None, 0
	}
	return m.Levels[class], dist[class]
}

// Validate checks the artifact against the current feature schema.
func (m *Model) Validate() error {
	if m.SchemaVersion != feature.SchemaVersion {
		return fmt.Errorf("model %s trained on schema v%d, current is v%d: %w",
			m.ID, m.SchemaVersion, feature.SchemaVersion, ErrSchemaMismatch)
	}
	if !slices.Equal(m.Features, feature.Names()) {
		return fmt.Errorf("model %s feature columns differ from current schema: %w", m.ID, ErrSchemaMismatch)
	}
	cls := m.classifier()
	if cls == nil {
		return fmt.Errorf("model %s carries no fitted ensemble: %w", m.ID, ErrSchemaMismatch)
	}
	if c := cls.Classes(); c != len(m.Levels) {
		return fmt.Errorf("model %s has %d classes for %d levels: %w", m.ID, c, len(m.Levels), ErrSchemaMismatch)
	}
	return nil
}

// SaveModel persists the artifact through a temporary file and rename.
func SaveModel(m *Model, path string) error {
	return dataset.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// LoadModel reads and validates a model artifact. A missing file returns
// (nil, nil): nothing trained yet.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %v: %w", path, err, ErrSchemaMismatch)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
