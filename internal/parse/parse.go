// Package parse extracts positioned text blocks from source documents.
package parse

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TextBlock is one visual line of text with its layout attributes.
// Coordinates are in points relative to the top-left page corner, so Y0
// grows downward and a smaller Y0 means higher on the page.
type TextBlock struct {
	Page     int // 1-based
	X0       float64
	Y0       float64
	X1       float64
	Y1       float64
	Text     string
	Font     string
	Size     float64
	Bold     bool
	Italic   bool
	Centered bool
}

// Width returns the horizontal extent of the block.
func (b TextBlock) Width() float64 { return b.X1 - b.X0 }

// PageInfo carries the page dimensions the layout features are computed
// against.
type PageInfo struct {
	Width  float64
	Height float64
}

// Document is the ordered block sequence of one source file. Blocks are in
// reading order: by page, then top to bottom, then left to right.
type Document struct {
	Name   string // file stem, used as the document id
	Path   string
	Pages  []PageInfo
	Blocks []TextBlock
}

// PageCount returns the number of pages seen in the document.
func (d *Document) PageCount() int { return len(d.Pages) }

// Source reads one document into its ordered block sequence.
// Implementations must be safe for concurrent Read calls.
type Source interface {
	Read(path string) (*Document, error)
}

// CollaboratorError wraps a failure inside the PDF reading library for one
// document. The pipeline records it against that document and keeps going.
type CollaboratorError struct {
	Path string
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// DocName returns the document id for a file path: the base name without
// its extension.
func DocName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
