package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GonzoDMX/citation-index/internal/ai"
	"github.com/GonzoDMX/citation-index/internal/api"
	"github.com/GonzoDMX/citation-index/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Opens the database, makes sure the full-text index and its triggers
exist, then serves the JSON API. Startup fails if the index cannot be set up.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()
	log := e.log

	// 1. Index
	report, err := e.store.EnsureIndex(ctx)
	if err != nil {
		log.Error("full-text index setup failed", "error", err.Error())
		return err
	}
	if report.Created || report.Backfilled > 0 {
		log.Info("index initialised", "created", report.Created, "backfilled", report.Backfilled)
	}

	// 2. Uploads
	// 0755: Owner can read/write/exec, Group/Others can read/exec
	if err := os.MkdirAll(e.cfg.Uploads.Dir, 0755); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}

	// 3. Extraction gateway (optional outside production)
	var extractor ai.Extractor
	client, err := ai.NewClient(e.cfg.Gemini, log)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn("GEMINI_API_KEY not set, PDF extraction disabled")
	case err != nil:
		return err
	default:
		extractor = client
	}

	// 4. Router
	h := api.NewHandlers(api.Deps{
		Store:     e.store,
		Search:    search.NewExecutor(e.store.DB(), e.cfg.Search.Weights, e.cfg.Search.Limit),
		Extractor: extractor,
		Uploads:   e.cfg.Uploads,
		Log:       log,
	})

	server := &http.Server{
		Addr:         e.cfg.Server.Addr,
		Handler:      api.NewRouter(h),
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout, // covers the Gemini round trip
		IdleTimeout:  e.cfg.Server.IdleTimeout,
	}

	// 5. Start Server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "db", e.store.Path(), "driver", e.store.Driver())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
