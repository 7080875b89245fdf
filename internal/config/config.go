package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	// Data files
	DataDir string

	// Label-review server
	Addr   string
	APIKey string // empty disables bearer auth

	// Worker pool
	Workers int

	// Feature extraction
	HeaderFooterRepeat float64
	GapFallback        float64

	// Training
	EnsembleKind string
	Trees        int
	MaxTreeDepth int
	MinLeaf      int
	LearningRate float64
	Subsample    float64
	Seed         uint64
	MinTrainRows int
	Holdout      float64

	// Prediction
	MaxHeadingDepth int
	AllowHeuristic  bool
}

func Load() Config {
	cfg := Config{
		DataDir: envOr("PDFOUTLINE_DATA_DIR", "data"),

		Addr:   envOr("PDFOUTLINE_ADDR", ":8090"),
		APIKey: os.Getenv("PDFOUTLINE_API_KEY"),

		Workers: envInt("PDFOUTLINE_WORKERS", 4),

		HeaderFooterRepeat: envFloat("PDFOUTLINE_HEADER_FOOTER_REPEAT", 0.5),
		GapFallback:        envFloat("PDFOUTLINE_GAP_FALLBACK", -1),

		EnsembleKind: envOr("PDFOUTLINE_ENSEMBLE", "forest"),
		Trees:        envInt("PDFOUTLINE_TREES", 200),
		MaxTreeDepth: envInt("PDFOUTLINE_MAX_TREE_DEPTH", 12),
		MinLeaf:      envInt("PDFOUTLINE_MIN_LEAF", 1),
		LearningRate: envFloat("PDFOUTLINE_LEARNING_RATE", 0.1),
		Subsample:    envFloat("PDFOUTLINE_SUBSAMPLE", 1.0),
		Seed:         envUint64("PDFOUTLINE_SEED", 42),
		MinTrainRows: envInt("PDFOUTLINE_MIN_TRAIN_ROWS", 20),
		Holdout:      envFloat("PDFOUTLINE_HOLDOUT", 0.2),

		MaxHeadingDepth: envInt("PDFOUTLINE_MAX_HEADING_DEPTH", 3),
		AllowHeuristic:  envBool("PDFOUTLINE_ALLOW_HEURISTIC", true),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.HeaderFooterRepeat <= 0 || cfg.HeaderFooterRepeat > 1 {
		cfg.HeaderFooterRepeat = 0.5
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 200
	}
	if cfg.MaxTreeDepth <= 0 {
		cfg.MaxTreeDepth = 12
	}
	if cfg.MinLeaf <= 0 {
		cfg.MinLeaf = 1
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Subsample <= 0 || cfg.Subsample > 1 {
		cfg.Subsample = 1.0
	}
	if cfg.MinTrainRows <= 0 {
		cfg.MinTrainRows = 20
	}
	if cfg.Holdout < 0 {
		cfg.Holdout = 0
	}
	if cfg.Holdout > 0.5 {
		cfg.Holdout = 0.5
	}
	if cfg.MaxHeadingDepth < 1 {
		cfg.MaxHeadingDepth = 3
	}
	if cfg.MaxHeadingDepth > 6 {
		cfg.MaxHeadingDepth = 6
	}

	return cfg
}

func (c Config) Validate() error {
	switch c.EnsembleKind {
	case "forest", "boosting":
	default:
		return fmt.Errorf("PDFOUTLINE_ENSEMBLE must be \"forest\" or \"boosting\", got %q", c.EnsembleKind)
	}
	if c.DataDir == "" {
		return fmt.Errorf("PDFOUTLINE_DATA_DIR is required")
	}
	return nil
}

// DatasetPath is the labeled corpus CSV inside the data dir.
func (c Config) DatasetPath() string {
	return filepath.Join(c.DataDir, "dataset.csv")
}

// ModelPath is the trained model artifact inside the data dir.
func (c Config) ModelPath() string {
	return filepath.Join(c.DataDir, "model.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envUint64(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
