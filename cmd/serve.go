package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/listingops/curator/internal/config"
	"github.com/listingops/curator/internal/handlers"
	"github.com/listingops/curator/internal/metrics"
	"github.com/listingops/curator/internal/pipeline"
	"github.com/listingops/curator/internal/storage"
	"github.com/listingops/curator/internal/templates"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var templatesPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP pipeline service",
		Long: `Starts the curator HTTP service on the specified port.

The orchestrator posts bundles to /api/pipeline (both stages), /api/resolve or
/api/build and receives the stage record back. Recent runs are kept in memory
under /api/runs and Prometheus metrics are served on /metrics.`,
		Example: `  # Start server on default port 8888
  curator serve

  # Start server on custom port with a shared template file
  curator serve --port 3000 --templates templates.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.Port
			}
			if templatesPath == "" {
				templatesPath = cfg.TemplatesPath
			}

			collector := metrics.New()
			options := []pipeline.Option{pipeline.WithRecorder(collector)}
			if templatesPath != "" {
				catalog, err := templates.LoadFile(templatesPath)
				if err != nil {
					return fmt.Errorf("failed to load templates: %w", err)
				}
				slog.Info("Loaded templates", "path", templatesPath, "templates", catalog.Len())
				options = append(options, pipeline.WithTemplates(catalog))
			}

			runner := pipeline.NewRunner(cfg.ResolverOptions(), options...)
			handler := handlers.New(runner, storage.New(cfg.RunHistory))

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/pipeline", handler.HandlePipeline)
			mux.HandleFunc("/api/resolve", handler.HandleResolve)
			mux.HandleFunc("/api/build", handler.HandleBuild)
			mux.HandleFunc("/api/runs", handler.HandleRuns)
			mux.HandleFunc("/api/runs/", handler.HandleRunDetail)
			mux.Handle("/metrics", collector.Handler())
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Curator service available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", config.DefaultPort, "Port to listen on (overrides $PORT)")
	cmd.Flags().StringVar(&templatesPath, "templates", "", "Path to template collection, .json or .yaml")

	return cmd
}
