package parse

import (
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Substrings of PostScript font names that signal weight and slant,
// matched case-insensitively.
var (
	boldMarkers   = []string{"bold", "black", "heavy", "demi", "semibold", "extrabold"}
	italicMarkers = []string{"italic", "oblique"}
)

// Default page box when a PDF omits its MediaBox (US Letter, points).
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// PDFSource reads positioned text lines out of PDF files.
type PDFSource struct {
	// RowTolerance is the Y distance in points within which glyphs belong
	// to the same visual line.
	RowTolerance float64
	// WordGap is the fraction of the font size above which a horizontal
	// gap between glyphs becomes a space.
	WordGap float64
	// CenterTolerance is the fraction of the page width within which a
	// line's center must sit around the page center to count as centered.
	CenterTolerance float64
}

// NewPDFSource returns a source with the default layout thresholds.
func NewPDFSource() *PDFSource {
	return &PDFSource{
		RowTolerance:    2.0,
		WordGap:         0.3,
		CenterTolerance: 0.05,
	}
}

// Read extracts the document's text blocks in reading order.
func (s *PDFSource) Read(path string) (doc *Document, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables, so
	// a recover is needed to turn that into a per-document error.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &CollaboratorError{Path: path, Err: fmt.Errorf("pdf reader panic: %v", r)}
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, &CollaboratorError{Path: path, Err: err}
	}
	defer f.Close()

	doc = &Document{Name: DocName(path), Path: path}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, PageInfo{Width: letterWidth, Height: letterHeight})
			continue
		}
		box := mediaBox(page)
		doc.Pages = append(doc.Pages, PageInfo{Width: box.x1 - box.x0, Height: box.y1 - box.y0})
		doc.Blocks = append(doc.Blocks, s.pageBlocks(page, i, box)...)
	}
	return doc, nil
}

// pageBlocks groups a page's glyphs into lines and converts them to blocks
// sorted top to bottom, then left to right.
func (s *PDFSource) pageBlocks(page pdflib.Page, pageNum int, box bounds) []TextBlock {
	content := page.Content()
	texts := make([]pdflib.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		texts = append(texts, t)
	}
	if len(texts) == 0 {
		return nil
	}

	var blocks []TextBlock
	for _, row := range groupRows(texts, s.RowTolerance) {
		b, ok := s.rowBlock(row, pageNum, box)
		if !ok {
			continue
		}
		blocks = append(blocks, b)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Y0 != blocks[j].Y0 {
			return blocks[i].Y0 < blocks[j].Y0
		}
		return blocks[i].X0 < blocks[j].X0
	})
	return blocks
}

// groupRows buckets glyphs that share a baseline within tol. Buckets come
// back ordered top of page first (PDF Y grows upward).
func groupRows(texts []pdflib.Text, tol float64) [][]pdflib.Text {
	type bucket struct {
		yMin, yMax float64
		texts      []pdflib.Text
	}
	var buckets []bucket

	for _, t := range texts {
		placed := false
		for i := range buckets {
			if t.Y >= buckets[i].yMin-tol && t.Y <= buckets[i].yMax+tol {
				buckets[i].texts = append(buckets[i].texts, t)
				if t.Y < buckets[i].yMin {
					buckets[i].yMin = t.Y
				}
				if t.Y > buckets[i].yMax {
					buckets[i].yMax = t.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{yMin: t.Y, yMax: t.Y, texts: []pdflib.Text{t}})
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	rows := make([][]pdflib.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.texts
	}
	return rows
}

// rowBlock merges one line's glyphs into a block, inserting spaces at word
// gaps and flipping the coordinates to a top-left origin.
func (s *PDFSource) rowBlock(row []pdflib.Text, pageNum int, box bounds) (TextBlock, bool) {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

	var (
		sb         strings.Builder
		x0, x1     float64
		baseMin    float64
		baseMax    float64
		prevEnd    float64
		bold       bool
		italic     bool
		font       string
		sizeCounts = make(map[float64]int)
	)

	for i, t := range row {
		if i == 0 {
			x0, x1 = t.X, t.X+t.W
			baseMin, baseMax = t.Y, t.Y
			font = t.Font
		} else {
			ref := t.FontSize
			if ref <= 0 {
				ref = 10
			}
			if t.X-prevEnd > s.WordGap*ref {
				sb.WriteByte(' ')
			}
			if t.X < x0 {
				x0 = t.X
			}
			if t.X+t.W > x1 {
				x1 = t.X + t.W
			}
			if t.Y < baseMin {
				baseMin = t.Y
			}
			if t.Y > baseMax {
				baseMax = t.Y
			}
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W

		sizeCounts[roundTo(t.FontSize, 0.1)]++
		if b, it := fontFlags(t.Font); b || it {
			bold = bold || b
			italic = italic || it
		}
	}

	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return TextBlock{}, false
	}

	size := modalSize(sizeCounts)
	pageW := box.x1 - box.x0

	b := TextBlock{
		Page: pageNum,
		X0:   x0 - box.x0,
		Y0:   box.y1 - (baseMax + size),
		X1:   x1 - box.x0,
		Y1:   box.y1 - baseMin,
		Text: text,
		Font: font,
		Size: size,
	}
	b.Bold = bold
	b.Italic = italic

	center := (b.X0 + b.X1) / 2
	b.Centered = pageW > 0 && abs(center-pageW/2) <= s.CenterTolerance*pageW
	return b, true
}

// fontFlags inspects a font name for weight and slant markers.
func fontFlags(name string) (bold, italic bool) {
	lower := strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(lower, m) {
			bold = true
			break
		}
	}
	for _, m := range italicMarkers {
		if strings.Contains(lower, m) {
			italic = true
			break
		}
	}
	return bold, italic
}

// modalSize picks the most frequent glyph size on the line; ties go to the
// larger size.
func modalSize(counts map[float64]int) float64 {
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	best, bestN := 0.0, -1
	for _, k := range keys {
		if n := counts[k]; n >= bestN {
			best, bestN = k, n
		}
	}
	return best
}

type bounds struct {
	x0, y0, x1, y1 float64
}

// mediaBox resolves the page's MediaBox, walking Parent links because the
// box may be inherited from the page tree. Falls back to US Letter.
func mediaBox(page pdflib.Page) bounds {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if mb := v.Key("MediaBox"); !mb.IsNull() && mb.Len() == 4 {
			b := bounds{
				x0: mb.Index(0).Float64(),
				y0: mb.Index(1).Float64(),
				x1: mb.Index(2).Float64(),
				y1: mb.Index(3).Float64(),
			}
			if b.x1 > b.x0 && b.y1 > b.y0 {
				return b
			}
		}
		v = v.Key("Parent")
	}
	return bounds{x1: letterWidth, y1: letterHeight}
}

func roundTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := v / step
	if n < 0 {
		return float64(int64(n-0.5)) * step
	}
	return float64(int64(n+0.5)) * step
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
