package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <input-dir> <output-dir>",
	Short: "Extract, classify, and write outlines for a directory of PDFs",
	Long: `Run the batch pipeline over every PDF in <input-dir>: extract text
blocks, merge them into the corpus (human labels stick across reruns),
train or reuse the classifier, and write one outline JSON per document
into <output-dir> along with per-document feature and font diagnostics.

Unreadable PDFs are skipped and reported; the rest of the batch still
completes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("interrupt, stopping")
			cancel()
		}()

		runner := pipeline.NewRunner(cfg, nil, log)
		report, err := runner.Run(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printRunReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
