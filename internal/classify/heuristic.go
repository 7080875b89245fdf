package classify

import (
	"errors"

	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// ErrModelUnavailable means prediction was requested with no trained
// model and the heuristic fallback disabled.
var ErrModelUnavailable = errors.New("no trained model available")

// HeuristicConfidence is the flat confidence reported for percentile
// band guesses.
const HeuristicConfidence = 0.5

// Heuristic assigns levels from the document-relative font size
// percentile: the top band is the Title, the next bands map to H1 and
// deeper, everything else is Body. It needs no training data and is the
// cold-start path before any labels exist.
type Heuristic struct {
	MaxDepth int // deepest heading band, 1..6
}

// Predict maps the block's size rank onto a level band.
func (h Heuristic) Predict(vec feature.Vector) (outline.Level, float64) {
	depth := h.MaxDepth
	if depth < 1 {
		depth = 3
	}
	if depth > 6 {
		depth = 6
	}

	r := vec.SizeRank
	if r >= 0.99 {
		return outline.Title, HeuristicConfidence
	}
	for d := 1; d <= depth; d++ {
		if r >= 0.99-0.03*float64(d) {
			return outline.Heading(d), HeuristicConfidence
		}
	}
	return outline.Body, HeuristicConfidence
}
