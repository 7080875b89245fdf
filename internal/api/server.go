// Package api serves the label-review surface: browse extracted rows,
// set or clear their levels, and preview the outline a document would
// get with the current labels and model.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/dgallion1/pdfoutline/internal/classify"
	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// Server is the HTTP server for corpus review.
type Server struct {
	router   chi.Router
	cfg      config.Config
	log      *slog.Logger
	markdown goldmark.Markdown

	// mu serializes store access and keeps the single-writer rule for
	// the dataset file.
	mu        sync.Mutex
	store     *dataset.Store
	model     *classify.Model
	heuristic classify.Heuristic
}

// NewServer wires the review server around an already loaded corpus. A
// nil model means previews fall back to the percentile heuristic.
func NewServer(store *dataset.Store, model *classify.Model, cfg config.Config, log *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		markdown:  goldmark.New(),
		store:     store,
		model:     model,
		heuristic: classify.Heuristic{MaxDepth: cfg.MaxHeadingDepth},
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/docs", s.handleDocs)
		r.Get("/api/rows", s.handleRows)
		r.Put("/api/rows/{doc}/{block}/label", s.handleSetLabel)
		r.Delete("/api/rows/{doc}/{block}/label", s.handleClearLabel)
		r.Get("/api/outline/{doc}", s.handleOutline)
		r.Get("/preview/{doc}", s.handlePreview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// resolveRow decides a row's level the same way the batch pipeline does:
// the human label wins, then the model, then the heuristic. The server
// always has the heuristic so previews work before any training.
func (s *Server) resolveRow(row dataset.Row) (outline.Level, float64, string) {
	if row.Labeled() {
		return row.Level.Clamp(s.cfg.MaxHeadingDepth), 1, "label"
	}
	if s.model != nil {
		lvl, conf := s.model.Predict(row.Vec)
		return lvl.Clamp(s.cfg.MaxHeadingDepth), conf, "model"
	}
	lvl, conf := s.heuristic.Predict(row.Vec)
	return lvl.Clamp(s.cfg.MaxHeadingDepth), conf, "heuristic"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
