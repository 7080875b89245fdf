package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// Header returns the CSV column layout the store persists with. The header
// doubles as the schema check on load: a stored file whose header differs
// was produced by another feature schema and cannot be merged.
func Header() []string {
	cols := []string{"doc", "block", "page", "text"}
	cols = append(cols, feature.Names()...)
	return append(cols, "level")
}

// SchemaError means a stored file does not match the current feature
// schema. The fix is to regenerate or migrate the file, never to guess at
// a mapping.
type SchemaError struct {
	Path   string
	Reason string
	Got    []string
	Want   []string
}

func (e *SchemaError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dataset %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("dataset %s: header %v does not match schema %v", e.Path, e.Got, e.Want)
}

// Load reads the corpus at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses CSV corpus data. The name appears in error messages only.
func Read(r io.Reader, name string) (*Store, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, &SchemaError{Path: name, Reason: fmt.Sprintf("read header: %v", err)}
	}
	if !slices.Equal(header, Header()) {
		return nil, &SchemaError{Path: name, Got: header, Want: Header()}
	}

	s := NewStore()
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SchemaError{Path: name, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, &SchemaError{Path: name, Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		s.rows[row.Key()] = row
	}
	return s, nil
}

// Save writes the corpus to path through a temporary file and rename.
func (s *Store) Save(path string) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return s.Write(w)
	})
}

// Write emits the corpus as CSV, rows sorted by document then block.
func (s *Store) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, k := range s.keys() {
		if err := cw.Write(record(s.rows[k])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r Row) []string {
	rec := make([]string, 0, 5+feature.Count())
	rec = append(rec, r.Doc, strconv.Itoa(r.Block), strconv.Itoa(r.Page), r.Text)
	for _, v := range r.Vec.Values() {
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return append(rec, r.Level.String())
}

func parseRecord(rec []string) (Row, error) {
	block, err := strconv.Atoi(rec[1])
	if err != nil {
		return Row{}, fmt.Errorf("block %q: %w", rec[1], err)
	}
	page, err := strconv.Atoi(rec[2])
	if err != nil {
		return Row{}, fmt.Errorf("page %q: %w", rec[2], err)
	}

	vals := make([]float64, feature.Count())
	for i := range vals {
		v, err := strconv.ParseFloat(rec[4+i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %s %q: %w", feature.Names()[i], rec[4+i], err)
		}
		vals[i] = v
	}
	vec, err := feature.FromValues(vals)
	if err != nil {
		return Row{}, err
	}

	lvl, err := outline.ParseLevel(rec[len(rec)-1])
	if err != nil {
		return Row{}, err
	}

	return Row{Doc: rec[0], Block: block, Page: page, Text: rec[3], Vec: vec, Level: lvl}, nil
}
