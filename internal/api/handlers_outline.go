package api

import (
	"bytes"
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pdfoutline/internal/outline"
)

// assembleDoc resolves the document's levels under the lock and builds
// its outline forest.
func (s *Server) assembleDoc(doc string) ([]*outline.Node, bool) {
	s.mu.Lock()
	rows := s.store.DocRows(doc)
	items := make([]outline.Item, 0, len(rows))
	for _, row := range rows {
		lvl, _, _ := s.resolveRow(row)
		items = append(items, outline.Item{Level: lvl, Text: row.Text, Page: row.Page})
	}
	s.mu.Unlock()

	if len(items) == 0 {
		return nil, false
	}
	return outline.Assemble(items), true
}

// handleOutline returns the nested outline JSON for one document, as the
// batch pipeline would write it right now.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	roots, ok := s.assembleDoc(doc)
	if !ok {
		jsonError(w, "unknown document: "+doc, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := outline.EncodeJSON(w, roots); err != nil {
		s.log.Error("encode outline", "doc", doc, "error", err)
	}
}

const previewShell = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.5; }
h1, h2, h3, h4, h5, h6 { margin-top: 1.2em; }
</style>
</head>
<body>
%s</body>
</html>
`

// handlePreview renders the document outline as an HTML page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	roots, ok := s.assembleDoc(doc)
	if !ok {
		jsonError(w, "unknown document: "+doc, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(outline.Markdown(roots)), &buf); err != nil {
		jsonError(w, "render preview: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, previewShell, html.EscapeString(doc), buf.String())
}
