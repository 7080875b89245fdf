package feature

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pdfoutline/internal/parse"
)

// repeatKey identifies a candidate running line: its normalized text plus
// the vertical band (Y0 rounded to the nearest 10 points) it appears in.
type repeatKey struct {
	text string
	band float64
}

// SuppressRepeated drops lines that recur at the same vertical band on
// enough pages, the running headers and footers. A candidate has at least
// 5 characters, at most 10 words, and repeats on at least repeatFrac of
// the pages (minimum 2). Once a text qualifies at any band, every
// occurrence of it is suppressed.
func SuppressRepeated(blocks []parse.TextBlock, pages int, repeatFrac float64) (kept, suppressed []parse.TextBlock) {
	if pages < 2 || len(blocks) == 0 {
		return blocks, nil
	}
	if repeatFrac <= 0 || repeatFrac > 1 {
		repeatFrac = 0.5
	}

	pagesSeen := make(map[repeatKey]map[int]struct{})
	for _, b := range blocks {
		k, ok := candidateKey(b)
		if !ok {
			continue
		}
		if pagesSeen[k] == nil {
			pagesSeen[k] = make(map[int]struct{})
		}
		pagesSeen[k][b.Page] = struct{}{}
	}

	threshold := float64(pages) * repeatFrac
	repeated := make(map[string]struct{})
	for k, seen := range pagesSeen {
		if len(seen) >= 2 && float64(len(seen)) >= threshold {
			repeated[k.text] = struct{}{}
		}
	}
	if len(repeated) == 0 {
		return blocks, nil
	}

	kept = make([]parse.TextBlock, 0, len(blocks))
	for _, b := range blocks {
		k, ok := candidateKey(b)
		if !ok {
			kept = append(kept, b)
			continue
		}
		if _, drop := repeated[k.text]; drop {
			suppressed = append(suppressed, b)
			continue
		}
		kept = append(kept, b)
	}
	return kept, suppressed
}

func candidateKey(b parse.TextBlock) (repeatKey, bool) {
	words := strings.Fields(strings.ToLower(b.Text))
	if len(words) == 0 || len(words) > 10 {
		return repeatKey{}, false
	}
	text := strings.Join(words, " ")
	if utf8.RuneCountInString(text) < 5 {
		return repeatKey{}, false
	}
	return repeatKey{text: text, band: math.Round(b.Y0/10) * 10}, true
}
