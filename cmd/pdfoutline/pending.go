package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/dataset"
)

var pendingLimit int

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List corpus rows still waiting for a label",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := dataset.Load(cfg.DatasetPath())
		if err != nil {
			return err
		}

		printPending(cmd.OutOrStdout(), store, pendingLimit)
		return nil
	},
}

func init() {
	pendingCmd.Flags().IntVarP(&pendingLimit, "limit", "n", 20, "maximum rows to list (0 = all)")
	rootCmd.AddCommand(pendingCmd)
}
