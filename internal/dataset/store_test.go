package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

func row(doc string, block int, lvl outline.Level) Row {
	return Row{
		Doc:   doc,
		Block: block,
		Page:  1 + block/10,
		Text:  fmt.Sprintf("%s block %d", doc, block),
		Vec:   feature.Vector{FontSize: 10.5, SizeRank: 0.4, TextLen: 14, WordCount: 3, Page: 1},
		Level: lvl,
	}
}

func TestReconcile_InsertsNewRows(t *testing.T) {
	s := NewStore()
	st := s.Reconcile([]Row{row("a", 0, outline.None), row("a", 1, outline.None)})

	if st.Inserted != 2 || st.Replaced != 0 || st.Preserved != 0 || st.Removed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if s.Len() != 2 {
		t.Errorf("store should hold 2 rows, got %d", s.Len())
	}
}

func TestReconcile_LabeledRowsSurviveVerbatim(t *testing.T) {
	s := NewStore()
	labeled := row("a", 0, outline.H1)
	labeled.Text = "original heading text"
	s.Reconcile([]Row{labeled})
	if err := s.SetLevel("a", 0, outline.H1); err != nil {
		t.Fatalf("label: %v", err)
	}

	fresh := row("a", 0, outline.None)
	fresh.Text = "re-extracted variant"
	st := s.Reconcile([]Row{fresh})

	if st.Preserved != 1 {
		t.Fatalf("expected 1 preserved row, got %+v", st)
	}
	got, _ := s.Get("a", 0)
	if got.Text != "original heading text" || got.Level != outline.H1 {
		t.Errorf("labeled row was not preserved verbatim: %+v", got)
	}
}

func TestReconcile_UnlabeledRowsAreReplaced(t *testing.T) {
	s := NewStore()
	s.Reconcile([]Row{row("a", 0, outline.None)})

	fresh := row("a", 0, outline.None)
	fresh.Text = "updated text"
	fresh.Vec.FontSize = 18
	st := s.Reconcile([]Row{fresh})

	if st.Replaced != 1 {
		t.Fatalf("expected 1 replaced row, got %+v", st)
	}
	got, _ := s.Get("a", 0)
	if got.Text != "updated text" || got.Vec.FontSize != 18 {
		t.Errorf("unlabeled row not refreshed: %+v", got)
	}
}

func TestReconcile_StaleUnlabeledRowsDrop(t *testing.T) {
	s := NewStore()
	s.Reconcile([]Row{row("a", 0, outline.None), row("a", 1, outline.None), row("a", 2, outline.None)})
	if err := s.SetLevel("a", 2, outline.Body); err != nil {
		t.Fatalf("label: %v", err)
	}

	// The re-extracted document now has only block 0.
	st := s.Reconcile([]Row{row("a", 0, outline.None)})

	if st.Removed != 1 {
		t.Fatalf("expected 1 removed stale row, got %+v", st)
	}
	if _, ok := s.Get("a", 1); ok {
		t.Error("stale unlabeled row should be gone")
	}
	if _, ok := s.Get("a", 2); !ok {
		t.Error("stale labeled row must survive")
	}
}

func TestReconcile_OtherDocumentsUntouched(t *testing.T) {
	s := NewStore()
	s.Reconcile([]Row{row("a", 0, outline.None), row("b", 0, outline.None)})

	s.Reconcile([]Row{row("a", 0, outline.None)})
	if _, ok := s.Get("b", 0); !ok {
		t.Error("document b was not in the batch and must keep its rows")
	}
}

func TestSetLevel_UnknownRow(t *testing.T) {
	s := NewStore()
	err := s.SetLevel("ghost", 3, outline.H1)
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestNeedingLabel_OrderAndEarlyStop(t *testing.T) {
	s := NewStore()
	s.Reconcile([]Row{
		row("b", 0, outline.None),
		row("a", 1, outline.None),
		row("a", 0, outline.None),
	})
	if err := s.SetLevel("a", 1, outline.Body); err != nil {
		t.Fatalf("label: %v", err)
	}

	var got []Key
	for r := range s.NeedingLabel() {
		got = append(got, r.Key())
	}
	want := []Key{{Doc: "a", Block: 0}, {Doc: "b", Block: 0}}
	if len(got) != len(want) {
		t.Fatalf("expected %d pending rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pending[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// Early break must not panic or over-yield.
	n := 0
	for range s.NeedingLabel() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected exactly one yield before break, got %d", n)
	}

	if p := s.Pending(); p != 2 {
		t.Errorf("Pending() = %d, want 2", p)
	}
}

func TestLabelFingerprint_TracksLabelsOnly(t *testing.T) {
	s := NewStore()
	s.Reconcile([]Row{row("a", 0, outline.None), row("a", 1, outline.None)})
	base := s.LabelFingerprint()

	// Refreshing unlabeled features does not change the fingerprint.
	fresh := row("a", 0, outline.None)
	fresh.Vec.FontSize = 99
	s.Reconcile([]Row{fresh, row("a", 1, outline.None)})
	if s.LabelFingerprint() != base {
		t.Error("fingerprint must ignore unlabeled feature churn")
	}

	if err := s.SetLevel("a", 0, outline.H1); err != nil {
		t.Fatalf("label: %v", err)
	}
	labeled := s.LabelFingerprint()
	if labeled == base {
		t.Error("adding a label must change the fingerprint")
	}

	if err := s.SetLevel("a", 0, outline.H2); err != nil {
		t.Fatalf("relabel: %v", err)
	}
	if s.LabelFingerprint() == labeled {
		t.Error("changing a label must change the fingerprint")
	}

	if err := s.ClearLevel("a", 0); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.LabelFingerprint() != base {
		t.Error("clearing the only label must restore the empty fingerprint")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")

	s := NewStore()
	tricky := row("report", 0, outline.Title)
	tricky.Text = `heading with "quotes", commas, and
a line break`
	s.Reconcile([]Row{tricky, row("report", 1, outline.None), row("memo", 0, outline.Body)})

	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 rows after reload, got %d", loaded.Len())
	}
	got, ok := loaded.Get("report", 0)
	if !ok {
		t.Fatal("row missing after reload")
	}
	if got.Text != tricky.Text {
		t.Errorf("text not preserved: %q", got.Text)
	}
	if got.Level != outline.Title {
		t.Errorf("level not preserved: %v", got.Level)
	}
	if got.Vec != tricky.Vec {
		t.Errorf("features not preserved:\ngot  %+v\nwant %+v", got.Vec, tricky.Vec)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d rows", s.Len())
	}
}

func TestRead_HeaderMismatchIsSchemaError(t *testing.T) {
	in := "doc,block,page,text,font_size,level\na,0,1,x,10,Body\n"
	_, err := Read(strings.NewReader(in), "old.csv")

	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Got) == 0 || len(se.Want) == 0 {
		t.Errorf("schema error should carry both headers: %+v", se)
	}
}

func TestRead_CorruptValueIsSchemaError(t *testing.T) {
	header := strings.Join(Header(), ",")
	bad := header + "\na,NOTANUMBER,1,x" + strings.Repeat(",0", 15) + ",Body\n"

	_, err := Read(strings.NewReader(bad), "bad.csv")
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError for corrupt value, got %v", err)
	}
}

func TestWriteAtomic_FailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	boom := errors.New("disk full")
	err := WriteAtomic(path, func(w io.Writer) error { return boom })

	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("cause should be preserved through Unwrap")
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read back: %v", readErr)
	}
	if string(data) != "previous" {
		t.Errorf("original content clobbered: %q", data)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("readdir: %v", readErr)
	}
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries in dir", len(entries))
	}
}

func TestWriteAtomic_WritesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.txt")
	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}
