package feature

import (
	"math"
	"sort"

	"github.com/dgallion1/pdfoutline/internal/parse"
)

// DocStats aggregates a document's typography. Block features are computed
// relative to this context, so the same line can rank differently in a
// dense report and a slide deck.
type DocStats struct {
	BodySize float64 // modal font size of running text
	Pages    int
	sizes    []float64 // every surviving block's size, ascending
}

// ComputeStats builds the document context from its surviving blocks.
func ComputeStats(blocks []parse.TextBlock, pages int) DocStats {
	sizes := make([]float64, 0, len(blocks))
	for _, b := range blocks {
		sizes = append(sizes, b.Size)
	}
	sort.Float64s(sizes)
	return DocStats{
		BodySize: bodySize(blocks),
		Pages:    pages,
		sizes:    sizes,
	}
}

// SizeRank returns the fraction of the document's blocks whose size does
// not exceed s. The document's largest size ranks 1.0.
func (d DocStats) SizeRank(s float64) float64 {
	if len(d.sizes) == 0 {
		return 0
	}
	idx := sort.Search(len(d.sizes), func(i int) bool { return d.sizes[i] > s })
	return float64(idx) / float64(len(d.sizes))
}

// bodySize is the most common size rounded to 0.1 within the plausible
// body range (5, 30). Falls back to the overall mode, then to 10.
func bodySize(blocks []parse.TextBlock) float64 {
	inRange := make(map[float64]int)
	all := make(map[float64]int)
	for _, b := range blocks {
		s := math.Round(b.Size*10) / 10
		all[s]++
		if s > 5 && s < 30 {
			inRange[s]++
		}
	}
	if m, ok := mode(inRange); ok {
		return m
	}
	if m, ok := mode(all); ok {
		return m
	}
	return 10
}

// mode picks the most frequent size; ties go to the smaller one.
func mode(counts map[float64]int) (float64, bool) {
	if len(counts) == 0 {
		return 0, false
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	best, bestN := 0.0, -1
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best, true
}
