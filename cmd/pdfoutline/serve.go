package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/api"
	"github.com/dgallion1/pdfoutline/internal/classify"
	"github.com/dgallion1/pdfoutline/internal/dataset"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the label-review API",
	Long: `Serve the corpus over HTTP for review: list rows with their current
suggestion, set or clear labels, and preview the outline a document
would get. Labels persist to the dataset file on every change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		log := newLogger()

		store, err := dataset.Load(cfg.DatasetPath())
		if err != nil {
			return err
		}
		model, err := classify.LoadModel(cfg.ModelPath())
		if err != nil {
			if !errors.Is(err, classify.ErrSchemaMismatch) {
				return err
			}
			log.Warn("saved model is stale, serving heuristic suggestions",
				"path", cfg.ModelPath(), "error", err)
			model = nil
		}

		srv := api.NewServer(store, model, cfg, log)
		httpServer := &http.Server{
			Addr:         cfg.Addr,
			Handler:      srv,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("shutting down")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("serving corpus review",
			"addr", cfg.Addr,
			"rows", store.Len(),
			"pending", store.Pending(),
			"model", model != nil,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides PDFOUTLINE_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
