package pipeline

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/parse"
)

// writeFeaturesCSV writes the corpus columns plus how each row resolved,
// so a reviewer can see exactly what the classifier was shown.
func writeFeaturesCSV(path string, rows []dataset.Row, res []resolution) error {
	return dataset.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(append(dataset.Header(), "source", "confidence")); err != nil {
			return err
		}
		for i, r := range rows {
			rec := []string{r.Doc, strconv.Itoa(r.Block), strconv.Itoa(r.Page), r.Text}
			for _, v := range r.Vec.Values() {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
			}
			rec = append(rec,
				res[i].Level.String(),
				res[i].Source,
				strconv.FormatFloat(res[i].Confidence, 'g', -1, 64),
			)
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

type fontKey struct {
	font   string
	size   float64
	bold   bool
	italic bool
}

type fontLine struct {
	fontKey
	count  int
	sample string
}

// fontStyles aggregates block typography per (font, size, weight, slant).
// Sizes are bucketed to 0.1pt. The sample is the first block seen in
// reading order.
func fontStyles(blocks []parse.TextBlock) []fontLine {
	agg := make(map[fontKey]*fontLine)
	for _, b := range blocks {
		k := fontKey{
			font:   b.Font,
			size:   math.Round(b.Size*10) / 10,
			bold:   b.Bold,
			italic: b.Italic,
		}
		l, ok := agg[k]
		if !ok {
			l = &fontLine{fontKey: k, sample: sampleText(b.Text)}
			agg[k] = l
		}
		l.count++
	}

	lines := make([]fontLine, 0, len(agg))
	for _, l := range agg {
		lines = append(lines, *l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].count != lines[j].count {
			return lines[i].count > lines[j].count
		}
		if lines[i].font != lines[j].font {
			return lines[i].font < lines[j].font
		}
		if lines[i].size != lines[j].size {
			return lines[i].size > lines[j].size
		}
		if lines[i].bold != lines[j].bold {
			return lines[i].bold
		}
		return lines[i].italic && !lines[j].italic
	})
	return lines
}

// writeFontsCSV reports which typography combinations occur in the
// document, including suppressed headers and footers.
func writeFontsCSV(path string, blocks []parse.TextBlock) error {
	lines := fontStyles(blocks)
	return dataset.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"font", "size", "bold", "italic", "count", "sample"}); err != nil {
			return err
		}
		for _, l := range lines {
			rec := []string{
				l.font,
				strconv.FormatFloat(l.size, 'g', -1, 64),
				strconv.FormatBool(l.bold),
				strconv.FormatBool(l.italic),
				strconv.Itoa(l.count),
				l.sample,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func sampleText(s string) string {
	const max = 60
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
