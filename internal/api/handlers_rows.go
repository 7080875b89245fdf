package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// docSummary is one document's labeling progress.
type docSummary struct {
	Doc     string `json:"doc"`
	Rows    int    `json:"rows"`
	Labeled int    `json:"labeled"`
	Pending int    `json:"pending"`
}

// rowView is a corpus row plus the suggestion a reviewer would confirm
// or correct. Labeled rows carry no suggestion.
type rowView struct {
	Doc        string  `json:"doc"`
	Block      int     `json:"block"`
	Page       int     `json:"page"`
	Text       string  `json:"text"`
	Level      string  `json:"level,omitempty"`
	Predicted  string  `json:"predicted,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Source     string  `json:"source,omitempty"`
}

func (s *Server) rowView(row dataset.Row) rowView {
	v := rowView{
		Doc:   row.Doc,
		Block: row.Block,
		Page:  row.Page,
		Text:  row.Text,
	}
	if row.Labeled() {
		v.Level = row.Level.String()
		return v
	}
	lvl, conf, src := s.resolveRow(row)
	v.Predicted = lvl.String()
	v.Confidence = conf
	v.Source = src
	return v
}

// handleDocs lists per-document labeling progress.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sums := make([]docSummary, 0)
	for _, doc := range s.store.Docs() {
		rows := s.store.DocRows(doc)
		labeled := 0
		for _, row := range rows {
			if row.Labeled() {
				labeled++
			}
		}
		sums = append(sums, docSummary{
			Doc:     doc,
			Rows:    len(rows),
			Labeled: labeled,
			Pending: len(rows) - labeled,
		})
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"documents": sums})
}

// handleRows lists corpus rows. ?doc= filters to one document and
// ?unlabeled=1 to rows still needing a label.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	doc := r.URL.Query().Get("doc")
	unlabeledOnly := r.URL.Query().Get("unlabeled") == "1"

	s.mu.Lock()
	var rows []dataset.Row
	if doc != "" {
		rows = s.store.DocRows(doc)
	} else {
		rows = s.store.Rows()
	}
	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		if unlabeledOnly && row.Labeled() {
			continue
		}
		views = append(views, s.rowView(row))
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"rows": views, "count": len(views)})
}

type labelRequest struct {
	Level string `json:"level"`
}

// handleSetLabel records a human label for one row. The level must come
// from the closed set for the configured heading depth.
func (s *Server) handleSetLabel(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	block, err := strconv.Atoi(chi.URLParam(r, "block"))
	if err != nil {
		jsonError(w, "block must be an integer", http.StatusBadRequest)
		return
	}

	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	allowed := outline.Levels(s.cfg.MaxHeadingDepth)
	lvl, err := outline.ParseLevel(req.Level)
	if err != nil || !slices.Contains(allowed, lvl) {
		jsonError(w, fmt.Sprintf("level must be one of %s", levelList(allowed)), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetLevel(doc, block, lvl); err != nil {
		if errors.Is(err, dataset.ErrRowNotFound) {
			jsonError(w, fmt.Sprintf("no row %s/%d", doc, block), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(s.cfg.DatasetPath()); err != nil {
		jsonError(w, "persist corpus: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("label set", "doc", doc, "block", block, "level", lvl.String())
	writeJSON(w, map[string]any{
		"doc":     doc,
		"block":   block,
		"level":   lvl.String(),
		"pending": s.store.Pending(),
	})
}

// handleClearLabel returns a row to the unlabeled pool.
func (s *Server) handleClearLabel(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "doc")
	block, err := strconv.Atoi(chi.URLParam(r, "block"))
	if err != nil {
		jsonError(w, "block must be an integer", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ClearLevel(doc, block); err != nil {
		if errors.Is(err, dataset.ErrRowNotFound) {
			jsonError(w, fmt.Sprintf("no row %s/%d", doc, block), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(s.cfg.DatasetPath()); err != nil {
		jsonError(w, "persist corpus: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("label cleared", "doc", doc, "block", block)
	writeJSON(w, map[string]any{
		"doc":     doc,
		"block":   block,
		"pending": s.store.Pending(),
	})
}

func levelList(levels []outline.Level) string {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}
