// Package pipeline drives the batch flow: extract layout features from
// every input document, merge them into the labeled corpus, retrain the
// classifier when labels changed, and write one outline per document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/pdfoutline/internal/classify"
	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/ensemble"
	"github.com/dgallion1/pdfoutline/internal/feature"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/parse"
)

// How a row's level was decided.
const (
	SourceLabel     = "label"
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// Runner executes batch runs against one data directory.
type Runner struct {
	cfg    config.Config
	source parse.Source
	log    *slog.Logger
}

// NewRunner wires a runner. A nil source means read PDFs from disk; a nil
// logger falls back to slog.Default.
func NewRunner(cfg config.Config, source parse.Source, log *slog.Logger) *Runner {
	if source == nil {
		source = parse.NewPDFSource()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, source: source, log: log}
}

// docExtract is one document's extraction outcome.
type docExtract struct {
	idx  int
	path string
	name string
	doc  *parse.Document
	res  feature.Result
	rows []dataset.Row
	err  error
}

// Run processes every *.pdf under inputDir and writes per-document
// outlines and diagnostics under outputDir.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	start := time.Now()

	paths, err := listPDFs(inputDir)
	if err != nil {
		return nil, err
	}
	r.log.Info("documents discovered", "count", len(paths), "dir", inputDir)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Phase 1: extract features with bounded concurrency.
	extracted := r.extractAll(ctx, paths)

	var batch []dataset.Row
	for _, de := range extracted {
		if de.err != nil {
			var ce *parse.CollaboratorError
			if !errors.As(de.err, &ce) {
				return nil, de.err
			}
			r.log.Error("document skipped", "doc", de.name, "error", de.err)
			continue
		}
		batch = append(batch, de.rows...)
	}

	// Phase 2: merge into the corpus. Labels are sticky across
	// re-extractions.
	store, err := dataset.Load(r.cfg.DatasetPath())
	if err != nil {
		return nil, err
	}
	report := &Report{Reconcile: store.Reconcile(batch)}
	if err := store.Save(r.cfg.DatasetPath()); err != nil {
		return nil, err
	}
	r.log.Info("corpus reconciled",
		"inserted", report.Reconcile.Inserted,
		"replaced", report.Reconcile.Replaced,
		"preserved", report.Reconcile.Preserved,
		"removed", report.Reconcile.Removed,
		"rows", store.Len(),
	)

	// Phase 3: retrain when the labeled corpus changed.
	model, trainedNow, err := r.ensureModel(store, false)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 4: resolve levels and write outlines, in input order.
	rv := resolver{
		model:     model,
		heuristic: classify.Heuristic{MaxDepth: r.cfg.MaxHeadingDepth},
		fallback:  r.cfg.AllowHeuristic,
		maxDepth:  r.cfg.MaxHeadingDepth,
	}
	for _, de := range extracted {
		if de.err != nil {
			report.Docs = append(report.Docs, DocReport{
				Doc: de.name, Path: de.path, Skipped: true, Err: de.err.Error(),
			})
			continue
		}
		dr, err := r.emit(de, store, rv, outputDir)
		if err != nil {
			return nil, err
		}
		report.Docs = append(report.Docs, dr)
	}

	report.StoreRows = store.Len()
	report.LabeledRows = len(store.Labeled())
	report.PendingRows = store.Pending()
	if model != nil {
		report.Model = &ModelInfo{
			ID:          model.ID,
			Kind:        string(model.Kind),
			Accuracy:    model.Accuracy,
			HoldoutRows: model.HoldoutRows,
			Rows:        model.RowCount,
			TrainedNow:  trainedNow,
		}
	}
	report.Duration = time.Since(start)

	r.log.Info("run complete",
		"docs", len(report.Docs),
		"skipped", report.Skipped(),
		"rows", report.StoreRows,
		"pending", report.PendingRows,
		"duration", report.Duration,
	)
	return report, nil
}

// Train refits from the stored corpus regardless of the fingerprint and
// persists the artifact.
func (r *Runner) Train() (*classify.Model, error) {
	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := dataset.Load(r.cfg.DatasetPath())
	if err != nil {
		return nil, err
	}
	tc, err := r.trainerConfig()
	if err != nil {
		return nil, err
	}
	m, err := classify.NewTrainer(tc, r.log).Train(store.Rows(), store.LabelFingerprint())
	if err != nil {
		return nil, err
	}
	if err := classify.SaveModel(m, r.cfg.ModelPath()); err != nil {
		return nil, err
	}
	return m, nil
}

// extractAll fans document extraction out over the worker pool. The
// returned slice is in paths order.
func (r *Runner) extractAll(ctx context.Context, paths []string) []docExtract {
	fcfg := feature.Config{
		HeaderFooterRepeat: r.cfg.HeaderFooterRepeat,
		GapFallback:        r.cfg.GapFallback,
	}

	results := make(chan docExtract, len(paths))
	sem := make(chan struct{}, r.cfg.Workers)

	for i, path := range paths {
		sem <- struct{}{}
		go func(i int, path string) {
			defer func() { <-sem }()
			de := docExtract{idx: i, path: path, name: parse.DocName(path)}
			if err := ctx.Err(); err != nil {
				de.err = err
			} else if doc, err := r.source.Read(path); err != nil {
				de.err = err
			} else {
				de.doc = doc
				de.res = feature.Extract(doc, fcfg)
				de.rows = datasetRows(de.name, de.res)
			}
			results <- de
		}(i, path)
	}

	out := make([]docExtract, len(paths))
	for range paths {
		de := <-results
		out[de.idx] = de
	}
	return out
}

// ensureModel returns the classifier for this run: the stored artifact
// when the labeled corpus is unchanged, otherwise a fresh fit. A corpus
// too thin to train keeps the prior model, or nil for the heuristic.
func (r *Runner) ensureModel(store *dataset.Store, force bool) (*classify.Model, bool, error) {
	fp := store.LabelFingerprint()

	model, err := classify.LoadModel(r.cfg.ModelPath())
	if err != nil {
		if !errors.Is(err, classify.ErrSchemaMismatch) {
			return nil, false, err
		}
		r.log.Warn("stored model unusable, retraining", "error", err)
		model = nil
	}
	if model != nil && !force && model.LabelFingerprint == fp {
		return model, false, nil
	}

	tc, err := r.trainerConfig()
	if err != nil {
		return nil, false, err
	}
	m, err := classify.NewTrainer(tc, r.log).Train(store.Rows(), fp)
	if err != nil {
		var ide *classify.InsufficientDataError
		if errors.As(err, &ide) {
			r.log.Warn("not enough labels to train",
				"rows", ide.Rows, "classes", ide.Classes, "min_rows", ide.MinRows)
			return model, false, nil
		}
		return nil, false, err
	}
	if err := classify.SaveModel(m, r.cfg.ModelPath()); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (r *Runner) trainerConfig() (classify.TrainerConfig, error) {
	kind, err := ensemble.ParseKind(r.cfg.EnsembleKind)
	if err != nil {
		return classify.TrainerConfig{}, err
	}
	return classify.TrainerConfig{
		Ensemble: ensemble.Config{
			Kind:         kind,
			Trees:        r.cfg.Trees,
			MaxDepth:     r.cfg.MaxTreeDepth,
			MinLeaf:      r.cfg.MinLeaf,
			LearningRate: r.cfg.LearningRate,
			Subsample:    r.cfg.Subsample,
			Seed:         r.cfg.Seed,
		},
		MinRows: r.cfg.MinTrainRows,
		Holdout: r.cfg.Holdout,
	}, nil
}

// resolution records how one block's level was decided.
type resolution struct {
	Level      outline.Level
	Confidence float64
	Source     string
}

// resolver picks each row's level: human label first, then the model,
// then the percentile heuristic when allowed.
type resolver struct {
	model     *classify.Model
	heuristic classify.Heuristic
	fallback  bool
	maxDepth  int
}

func (rv resolver) resolve(row dataset.Row) (resolution, error) {
	switch {
	case row.Labeled():
		return resolution{Level: row.Level.Clamp(rv.maxDepth), Confidence: 1, Source: SourceLabel}, nil
	case rv.model != nil:
		lvl, conf := rv.model.Predict(row.Vec)
		return resolution{Level: lvl.Clamp(rv.maxDepth), Confidence: conf, Source: SourceModel}, nil
	case rv.fallback:
		lvl, conf := rv.heuristic.Predict(row.Vec)
		return resolution{Level: lvl.Clamp(rv.maxDepth), Confidence: conf, Source: SourceHeuristic}, nil
	}
	return resolution{}, classify.ErrModelUnavailable
}

// emit resolves one document's levels and writes its outline plus the
// feature and font diagnostics.
func (r *Runner) emit(de docExtract, store *dataset.Store, rv resolver, outDir string) (DocReport, error) {
	log := r.log.With("doc", de.name)

	items := make([]outline.Item, 0, len(de.rows))
	res := make([]resolution, len(de.rows))
	labeled := 0
	for i, row := range de.rows {
		// The label is sticky in the store; the features stay fresh.
		if stored, ok := store.Get(row.Doc, row.Block); ok && stored.Labeled() {
			row.Level = stored.Level
		}
		rs, err := rv.resolve(row)
		if err != nil {
			return DocReport{}, fmt.Errorf("resolve %s block %d: %w", de.name, row.Block, err)
		}
		if rs.Source == SourceLabel {
			labeled++
		}
		res[i] = rs
		items = append(items, outline.Item{Level: rs.Level, Text: row.Text, Page: row.Page})
	}

	roots := outline.Assemble(items)

	outPath := filepath.Join(outDir, de.name+".json")
	err := dataset.WriteAtomic(outPath, func(w io.Writer) error {
		return outline.EncodeJSON(w, roots)
	})
	if err != nil {
		return DocReport{}, err
	}
	if err := writeFeaturesCSV(filepath.Join(outDir, de.name+".features.csv"), de.rows, res); err != nil {
		return DocReport{}, err
	}
	if err := writeFontsCSV(filepath.Join(outDir, de.name+".fonts.csv"), de.doc.Blocks); err != nil {
		return DocReport{}, err
	}

	log.Info("outline written",
		"roots", len(roots),
		"blocks", len(de.rows),
		"suppressed", len(de.res.Suppressed),
		"labeled", labeled,
		"path", outPath,
	)
	return DocReport{
		Doc:         de.name,
		Path:        de.path,
		Pages:       de.doc.PageCount(),
		Blocks:      len(de.rows),
		Suppressed:  len(de.res.Suppressed),
		LabeledRows: labeled,
		Roots:       len(roots),
		OutlinePath: outPath,
	}, nil
}

func datasetRows(doc string, res feature.Result) []dataset.Row {
	rows := make([]dataset.Row, len(res.Blocks))
	for i, b := range res.Blocks {
		rows[i] = dataset.Row{
			Doc:   doc,
			Block: i,
			Page:  b.Page,
			Text:  b.Text,
			Vec:   res.Vectors[i],
		}
	}
	return rows
}

// listPDFs returns the .pdf files directly under dir, sorted by name.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
