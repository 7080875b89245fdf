// Package dataset persists the labeled block corpus that training reads
// and the review surface edits.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// ErrRowNotFound is returned when a label operation names a row the store
// does not hold.
var ErrRowNotFound = errors.New("row not found")

// Key identifies a row: the document id plus the block's position in that
// document's surviving block sequence.
type Key struct {
	Doc   string
	Block int
}

// Row is one text block's persisted record: identity, provenance, the
// feature vector, and an optional human label.
type Row struct {
	Doc   string
	Block int
	Page  int
	Text  string
	Vec   feature.Vector
	Level outline.Level // None until a human labels the row
}

// Key returns the row's identity.
func (r Row) Key() Key { return Key{Doc: r.Doc, Block: r.Block} }

// Labeled reports whether a human has assigned this row a level.
func (r Row) Labeled() bool { return r.Level != outline.None }

// Store is the in-memory corpus keyed by (doc, block). It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	rows map[Key]Row
}

// NewStore returns an empty corpus.
func NewStore() *Store {
	return &Store{rows: make(map[Key]Row)}
}

// Len is the number of rows held.
func (s *Store) Len() int { return len(s.rows) }

// Get looks up one row.
func (s *Store) Get(doc string, block int) (Row, bool) {
	r, ok := s.rows[Key{Doc: doc, Block: block}]
	return r, ok
}

// Rows returns every row sorted by document then block.
func (s *Store) Rows() []Row {
	out := make([]Row, 0, len(s.rows))
	for _, k := range s.keys() {
		out = append(out, s.rows[k])
	}
	return out
}

// Docs returns the distinct document ids, sorted.
func (s *Store) Docs() []string {
	seen := make(map[string]struct{})
	for k := range s.rows {
		seen[k.Doc] = struct{}{}
	}
	docs := make([]string, 0, len(seen))
	for d := range seen {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs
}

// DocRows returns one document's rows in block order.
func (s *Store) DocRows(doc string) []Row {
	var out []Row
	for k, r := range s.rows {
		if k.Doc == doc {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out
}

// Labeled returns the training subset sorted by key.
func (s *Store) Labeled() []Row {
	var out []Row
	for _, k := range s.keys() {
		if r := s.rows[k]; r.Labeled() {
			out = append(out, r)
		}
	}
	return out
}

// Pending counts the rows still waiting for a label.
func (s *Store) Pending() int {
	n := 0
	for _, r := range s.rows {
		if !r.Labeled() {
			n++
		}
	}
	return n
}

// NeedingLabel yields unlabeled rows in key order, the annotator's review
// queue.
func (s *Store) NeedingLabel() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, k := range s.keys() {
			r := s.rows[k]
			if r.Labeled() {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// SetLevel records a human label on an existing row.
func (s *Store) SetLevel(doc string, block int, lvl outline.Level) error {
	k := Key{Doc: doc, Block: block}
	r, ok := s.rows[k]
	if !ok {
		return fmt.Errorf("%s block %d: %w", doc, block, ErrRowNotFound)
	}
	r.Level = lvl
	s.rows[k] = r
	return nil
}

// ClearLevel removes a row's label, returning it to the review queue.
func (s *Store) ClearLevel(doc string, block int) error {
	return s.SetLevel(doc, block, outline.None)
}

// ReconcileStats summarizes one merge of freshly extracted rows.
type ReconcileStats struct {
	Inserted  int // rows seen for the first time
	Replaced  int // unlabeled rows refreshed with new features
	Preserved int // labeled rows kept exactly as stored
	Removed   int // stale unlabeled rows of re-extracted documents
}

// Reconcile merges one extraction batch into the corpus. Human labels are
// sticky: a labeled row survives verbatim even when the document was
// re-extracted, while unlabeled rows are replaced in place and unlabeled
// rows that no longer exist in their document are dropped. Documents not
// present in the batch are untouched.
func (s *Store) Reconcile(batch []Row) ReconcileStats {
	var st ReconcileStats

	docs := make(map[string]struct{})
	incoming := make(map[Key]struct{}, len(batch))
	for _, r := range batch {
		docs[r.Doc] = struct{}{}
		incoming[r.Key()] = struct{}{}
	}

	for k, r := range s.rows {
		if _, reextracted := docs[k.Doc]; !reextracted {
			continue
		}
		if _, present := incoming[k]; present {
			continue
		}
		if !r.Labeled() {
			delete(s.rows, k)
			st.Removed++
		}
	}

	for _, r := range batch {
		k := r.Key()
		old, ok := s.rows[k]
		switch {
		case !ok:
			s.rows[k] = r
			st.Inserted++
		case old.Labeled():
			st.Preserved++
		default:
			s.rows[k] = r
			st.Replaced++
		}
	}
	return st
}

// LabelFingerprint hashes the labeled subset of the corpus. It changes
// exactly when a label is added, changed, or removed, which is what
// decides whether the classifier needs retraining.
func (s *Store) LabelFingerprint() string {
	h := sha256.New()
	for _, k := range s.keys() {
		r := s.rows[k]
		if !r.Labeled() {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00%s\n", r.Doc, r.Block, r.Level)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) keys() []Key {
	keys := make([]Key, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Doc != keys[j].Doc {
			return keys[i].Doc < keys[j].Doc
		}
		return keys[i].Block < keys[j].Block
	})
	return keys
}
