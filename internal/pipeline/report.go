package pipeline

import (
	"time"

	"github.com/dgallion1/pdfoutline/internal/dataset"
)

// DocReport is the outcome for one input file.
type DocReport struct {
	Doc         string
	Path        string
	Pages       int
	Blocks      int // surviving text blocks
	Suppressed  int // running headers and footers dropped
	LabeledRows int // rows resolved from a human label
	Roots       int
	OutlinePath string
	Skipped     bool
	Err         string
}

// ModelInfo describes the classifier a run predicted with.
type ModelInfo struct {
	ID          string
	Kind        string
	Accuracy    float64
	HoldoutRows int
	Rows        int
	TrainedNow  bool
}

// Report summarizes one batch run.
type Report struct {
	Docs        []DocReport
	Reconcile   dataset.ReconcileStats
	StoreRows   int
	LabeledRows int
	PendingRows int
	Model       *ModelInfo // nil when predictions came from the heuristic
	Duration    time.Duration
}

// Extracted counts documents that produced an outline.
func (r *Report) Extracted() int {
	n := 0
	for _, d := range r.Docs {
		if !d.Skipped {
			n++
		}
	}
	return n
}

// Skipped counts documents dropped by reader failures.
func (r *Report) Skipped() int { return len(r.Docs) - r.Extracted() }
