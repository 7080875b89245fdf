package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/version"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "pdfoutline",
	Short: "Turn flat PDF text into nested outlines",
	Long: `pdfoutline extracts layout features for every text block in a PDF,
keeps a human-labeled corpus of those blocks, trains a tree ensemble on
the labels, and assembles the classified blocks into a nested outline.
Until the corpus is large enough to train, a font-size percentile
heuristic stands in for the model.`,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("pdfoutline %s\n", version.String()))
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "corpus directory (overrides PDFOUTLINE_DATA_DIR)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the --data-dir override.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger sends structured logs to stderr so stdout stays free for
// command output.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
