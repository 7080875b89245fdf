package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedRow(doc string, block int, text string, size, rank float64) dataset.Row {
	return dataset.Row{
		Doc:   doc,
		Block: block,
		Page:  1,
		Text:  text,
		Vec: feature.Vector{
			FontSize:  size,
			SizeRank:  rank,
			TextLen:   len(text),
			WordCount: len(strings.Fields(text)),
			Page:      1,
		},
	}
}

// seedStore builds a small corpus: one doc with a title, a numbered
// heading, and a body paragraph, plus a second single-block doc.
func seedStore() *dataset.Store {
	store := dataset.NewStore()
	store.Reconcile([]dataset.Row{
		seedRow("annual", 0, "Annual Review", 24, 1.0),
		seedRow("annual", 1, "1. Introduction", 16, 0.97),
		seedRow("annual", 2, "Body text.", 10, 0.4),
		seedRow("guide", 0, "User Guide", 20, 1.0),
	})
	return store
}

func newTestServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	cfg := config.Config{
		DataDir:         t.TempDir(),
		MaxHeadingDepth: 3,
	}
	return NewServer(seedStore(), nil, cfg, quietLogger()), cfg
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth_Open(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

type docsResponse struct {
	Documents []struct {
		Doc     string `json:"doc"`
		Rows    int    `json:"rows"`
		Labeled int    `json:"labeled"`
		Pending int    `json:"pending"`
	} `json:"documents"`
}

func TestDocs_SummarizesProgress(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/docs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp docsResponse
	decode(t, rec, &resp)
	if len(resp.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(resp.Documents))
	}
	if resp.Documents[0].Doc != "annual" || resp.Documents[1].Doc != "guide" {
		t.Fatalf("unexpected order: %+v", resp.Documents)
	}
	if d := resp.Documents[0]; d.Rows != 3 || d.Labeled != 0 || d.Pending != 3 {
		t.Fatalf("annual summary = %+v", d)
	}

	if rec := do(t, srv, http.MethodPut, "/api/rows/annual/1/label", `{"level":"H1"}`); rec.Code != http.StatusOK {
		t.Fatalf("label: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/api/docs", "")
	decode(t, rec, &resp)
	if d := resp.Documents[0]; d.Labeled != 1 || d.Pending != 2 {
		t.Fatalf("after labeling: %+v", d)
	}
}

type rowsResponse struct {
	Rows []struct {
		Doc        string  `json:"doc"`
		Block      int     `json:"block"`
		Page       int     `json:"page"`
		Text       string  `json:"text"`
		Level      string  `json:"level"`
		Predicted  string  `json:"predicted"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
	} `json:"rows"`
	Count int `json:"count"`
}

func TestRows_SuggestsForUnlabeled(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/rows?doc=annual", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp rowsResponse
	decode(t, rec, &resp)
	if resp.Count != 3 || len(resp.Rows) != 3 {
		t.Fatalf("count = %d, rows = %d", resp.Count, len(resp.Rows))
	}

	want := []string{"Title", "H1", "Body"}
	for i, row := range resp.Rows {
		if row.Level != "" {
			t.Fatalf("row %d carries label %q before any labeling", i, row.Level)
		}
		if row.Predicted != want[i] {
			t.Fatalf("row %d predicted = %q, want %q", i, row.Predicted, want[i])
		}
		if row.Source != "heuristic" || row.Confidence != 0.5 {
			t.Fatalf("row %d suggestion = %q/%v", i, row.Source, row.Confidence)
		}
	}
}

func TestRows_UnlabeledFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := do(t, srv, http.MethodPut, "/api/rows/annual/0/label", `{"level":"Title"}`); rec.Code != http.StatusOK {
		t.Fatalf("label: status = %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, srv, http.MethodGet, "/api/rows?unlabeled=1", "")
	var resp rowsResponse
	decode(t, rec, &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	for _, row := range resp.Rows {
		if row.Doc == "annual" && row.Block == 0 {
			t.Fatalf("labeled row leaked into unlabeled listing")
		}
	}
}

func TestSetLabel_PersistsToDisk(t *testing.T) {
	srv, cfg := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/rows/annual/1/label", `{"level":"H2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Level   string `json:"level"`
		Pending int    `json:"pending"`
	}
	decode(t, rec, &resp)
	if resp.Level != "H2" || resp.Pending != 3 {
		t.Fatalf("response = %+v", resp)
	}

	reloaded, err := dataset.Load(cfg.DatasetPath())
	if err != nil {
		t.Fatalf("load persisted corpus: %v", err)
	}
	if reloaded.Len() != 4 {
		t.Fatalf("persisted rows = %d, want 4", reloaded.Len())
	}
	row, ok := reloaded.Get("annual", 1)
	if !ok || row.Level != outline.H2 {
		t.Fatalf("persisted row = %+v, ok = %v", row, ok)
	}
}

func TestSetLabel_RejectsOutOfSetLevels(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, lvl := range []string{"H5", "Chapter", ""} {
		rec := do(t, srv, http.MethodPut, "/api/rows/annual/1/label", `{"level":"`+lvl+`"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("level %q: status = %d, want 422", lvl, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "H3") {
			t.Fatalf("level %q: error should list the allowed set: %s", lvl, rec.Body.String())
		}
	}
}

func TestSetLabel_UnknownRow(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/api/rows/ghost/0/label", "/api/rows/annual/9/label"} {
		rec := do(t, srv, http.MethodPut, path, `{"level":"H1"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}

func TestSetLabel_NonIntegerBlock(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/api/rows/annual/first/label", `{"level":"H1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestClearLabel_ReturnsRowToQueue(t *testing.T) {
	srv, cfg := newTestServer(t)

	if rec := do(t, srv, http.MethodPut, "/api/rows/annual/1/label", `{"level":"H1"}`); rec.Code != http.StatusOK {
		t.Fatalf("label: status = %d", rec.Code)
	}
	rec := do(t, srv, http.MethodDelete, "/api/rows/annual/1/label", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Pending int `json:"pending"`
	}
	decode(t, rec, &resp)
	if resp.Pending != 4 {
		t.Fatalf("pending = %d, want 4", resp.Pending)
	}

	reloaded, err := dataset.Load(cfg.DatasetPath())
	if err != nil {
		t.Fatalf("load persisted corpus: %v", err)
	}
	if row, _ := reloaded.Get("annual", 1); row.Labeled() {
		t.Fatalf("row still labeled after clear: %+v", row)
	}
}

type nodeView struct {
	Level    string     `json:"level"`
	Text     string     `json:"text"`
	Page     int        `json:"page"`
	Children []nodeView `json:"children"`
}

func TestOutline_LabelOverridesSuggestion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/outline/annual", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var root nodeView
	decode(t, rec, &root)
	if root.Level != "Title" || root.Text != "Annual Review" {
		t.Fatalf("root = %+v", root)
	}
	if len(root.Children) != 1 || root.Children[0].Level != "H1" {
		t.Fatalf("children = %+v", root.Children)
	}
	if kids := root.Children[0].Children; len(kids) != 1 || kids[0].Level != "Body" {
		t.Fatalf("grandchildren = %+v", root.Children[0].Children)
	}

	// A human correction beats the heuristic's H1.
	if rec := do(t, srv, http.MethodPut, "/api/rows/annual/1/label", `{"level":"H3"}`); rec.Code != http.StatusOK {
		t.Fatalf("label: status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/outline/annual", "")
	decode(t, rec, &root)
	if root.Children[0].Level != "H3" {
		t.Fatalf("child level = %q, want H3", root.Children[0].Level)
	}
}

func TestOutline_UnknownDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/outline/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown document") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func elementText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.TrimSpace(b.String())
}

func findElements(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(root)
	return out
}

func TestPreview_RendersHeadings(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/preview/annual", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}

	doc, err := html.Parse(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	if titles := findElements(doc, "title"); len(titles) != 1 || elementText(titles[0]) != "annual" {
		t.Fatalf("page title = %+v", titles)
	}
	h1 := findElements(doc, "h1")
	if len(h1) != 1 || elementText(h1[0]) != "Annual Review" {
		t.Fatalf("h1 = %+v", h1)
	}
	h2 := findElements(doc, "h2")
	if len(h2) != 1 || elementText(h2[0]) != "1. Introduction" {
		t.Fatalf("h2 = %+v", h2)
	}
	var para bool
	for _, p := range findElements(doc, "p") {
		if elementText(p) == "Body text." {
			para = true
		}
	}
	if !para {
		t.Fatalf("body paragraph missing from preview")
	}
}

func TestAuth_GuardsAPIRoutes(t *testing.T) {
	cfg := config.Config{
		DataDir:         t.TempDir(),
		MaxHeadingDepth: 3,
		APIKey:          "sekrit",
	}
	srv := NewServer(seedStore(), nil, cfg, quietLogger())

	if rec := do(t, srv, http.MethodGet, "/api/docs", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key: status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, srv, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health should stay open: status = %d", rec.Code)
	}
}
