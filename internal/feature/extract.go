package feature

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/pdfoutline/internal/parse"
)

// NumberedPattern matches list and section enumerators at the start of a
// line: dotted decimal numbers ("1.", "2.3.1"), parenthesized or bracketed
// numbers, single-letter enumerators ("A.", "b)"), full-width digits, and
// common bullets.
var NumberedPattern = regexp.MustCompile(`^\s*(?:(?:\d+\.)+\d*|\(\d+\)|\[\d+\]|[A-Za-z][.)](?:\s|$)|[０-９]+(?:．[０-９]+)*|[•*\-–—])`)

// Config tunes document-level feature extraction.
type Config struct {
	// HeaderFooterRepeat is the fraction of pages a line must repeat on
	// to be suppressed as a running header or footer.
	HeaderFooterRepeat float64
	// GapFallback substitutes for gap_above and gap_below when a block
	// has no same-page neighbor. Negative means use the distance to the
	// nearest page edge.
	GapFallback float64
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{HeaderFooterRepeat: 0.5, GapFallback: -1}
}

// Result pairs the computed vectors with the blocks they describe.
type Result struct {
	Vectors    []Vector          // one per surviving block, same order
	Blocks     []parse.TextBlock // surviving blocks in reading order
	Suppressed []parse.TextBlock // dropped headers and footers
	Stats      DocStats
}

// Extract computes the feature vector of every surviving block in doc.
// Identical input always produces identical vectors.
func Extract(doc *parse.Document, cfg Config) Result {
	kept, suppressed := SuppressRepeated(doc.Blocks, doc.PageCount(), cfg.HeaderFooterRepeat)
	stats := ComputeStats(kept, doc.PageCount())

	vecs := make([]Vector, 0, len(kept))
	for i, b := range kept {
		pageW, pageH := pageDims(doc, b.Page)

		v := Vector{
			FontSize:  b.Size,
			SizeRank:  stats.SizeRank(b.Size),
			SizeDelta: b.Size - stats.BodySize,
			Bold:      b.Bold,
			Italic:    b.Italic,
			TextLen:   utf8.RuneCountInString(b.Text),
			WordCount: len(strings.Fields(b.Text)),
			AllCaps:   allCaps(b.Text),
			Numbered:  NumberedPattern.MatchString(b.Text),
			Centered:  b.Centered,
			Page:      b.Page,
		}
		if pageW > 0 {
			v.Indent = b.X0 / pageW
		}
		if pageH > 0 {
			v.PagePos = b.Y0 / pageH
		}
		v.GapAbove = gapAbove(kept, i, cfg)
		v.GapBelow = gapBelow(kept, i, cfg, pageH)

		vecs = append(vecs, v)
	}

	return Result{Vectors: vecs, Blocks: kept, Suppressed: suppressed, Stats: stats}
}

func pageDims(doc *parse.Document, page int) (w, h float64) {
	if page >= 1 && page <= len(doc.Pages) {
		p := doc.Pages[page-1]
		return p.Width, p.Height
	}
	return 0, 0
}

func gapAbove(blocks []parse.TextBlock, i int, cfg Config) float64 {
	b := blocks[i]
	if i > 0 && blocks[i-1].Page == b.Page {
		return b.Y0 - blocks[i-1].Y1
	}
	if cfg.GapFallback >= 0 {
		return cfg.GapFallback
	}
	return b.Y0
}

func gapBelow(blocks []parse.TextBlock, i int, cfg Config, pageH float64) float64 {
	b := blocks[i]
	if i+1 < len(blocks) && blocks[i+1].Page == b.Page {
		return blocks[i+1].Y0 - b.Y1
	}
	if cfg.GapFallback >= 0 {
		return cfg.GapFallback
	}
	if pageH > b.Y1 {
		return pageH - b.Y1
	}
	return 0
}

// allCaps reports whether the text contains letters and none of them are
// lowercase.
func allCaps(text string) bool {
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
