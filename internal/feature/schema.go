// Package feature computes per-block layout feature vectors from parsed
// documents.
package feature

import "fmt"

// SchemaVersion identifies the feature vector layout. It changes whenever
// fieldNames does; stored datasets and trained models carry the version
// they were produced with and refuse to mix with another.
const SchemaVersion = 2

// fieldNames is the frozen column order of the numeric feature vector.
var fieldNames = []string{
	"font_size",
	"size_rank",
	"size_delta",
	"bold",
	"italic",
	"text_len",
	"word_count",
	"all_caps",
	"numbered",
	"centered",
	"indent",
	"gap_above",
	"gap_below",
	"page_pos",
	"page",
}

// Names returns the feature column names in vector order.
func Names() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Count is the width of a feature vector.
func Count() int { return len(fieldNames) }

// Vector is one block's numeric features.
type Vector struct {
	FontSize  float64
	SizeRank  float64
	SizeDelta float64
	Bold      bool
	Italic    bool
	TextLen   int
	WordCount int
	AllCaps   bool
	Numbered  bool
	Centered  bool
	Indent    float64
	GapAbove  float64
	GapBelow  float64
	PagePos   float64
	Page      int
}

// Values flattens the vector in the canonical column order, booleans as
// 0 or 1.
func (v Vector) Values() []float64 {
	return []float64{
		v.FontSize,
		v.SizeRank,
		v.SizeDelta,
		b2f(v.Bold),
		b2f(v.Italic),
		float64(v.TextLen),
		float64(v.WordCount),
		b2f(v.AllCaps),
		b2f(v.Numbered),
		b2f(v.Centered),
		v.Indent,
		v.GapAbove,
		v.GapBelow,
		v.PagePos,
		float64(v.Page),
	}
}

// FromValues rebuilds a vector from its flattened form.
func FromValues(vals []float64) (Vector, error) {
	if len(vals) != len(fieldNames) {
		return Vector{}, fmt.Errorf("feature vector has %d values, want %d", len(vals), len(fieldNames))
	}
	return Vector{
		FontSize:  vals[0],
		SizeRank:  vals[1],
		SizeDelta: vals[2],
		Bold:      vals[3] != 0,
		Italic:    vals[4] != 0,
		TextLen:   int(vals[5]),
		WordCount: int(vals[6]),
		AllCaps:   vals[7] != 0,
		Numbered:  vals[8] != 0,
		Centered:  vals[9] != 0,
		Indent:    vals[10],
		GapAbove:  vals[11],
		GapBelow:  vals[12],
		PagePos:   vals[13],
		Page:      int(vals[14]),
	}, nil
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
