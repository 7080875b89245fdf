package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/classify"
	"github.com/dgallion1/pdfoutline/internal/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Refit the classifier from the labeled corpus",
	Long: `Fit a fresh model on every labeled corpus row, report holdout
accuracy, and replace the saved model even if the labels have not
changed since the last fit. Use this after a labeling session instead
of waiting for the next run to notice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner(cfg, nil, newLogger())
		model, err := runner.Train()
		if err != nil {
			var ide *classify.InsufficientDataError
			if errors.As(err, &ide) {
				return fmt.Errorf("corpus too thin to train (%d labeled rows, %d classes); label more rows with `pdfoutline serve` and retry: %w",
					ide.Rows, ide.Classes, err)
			}
			return err
		}

		printModel(cmd.OutOrStdout(), model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
