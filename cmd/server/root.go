package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/logger"
	"github.com/GonzoDMX/citation-index/internal/store"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "citation-index",
	Short: "Legal citation store with ranked full-text search",
	Long: `Stores legal case citations in SQLite and keeps an FTS5 index in sync
with them. Searches are ranked with bm25, weighting the headnote highest.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "citation-index.toml", "path to TOML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".", "directory for the database and uploads")
}

// env is what every command needs once config is loaded.
type env struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
	e.log.Sync()
}

// loadConfig tolerates a missing API key unless the command calls Gemini.
func loadConfig(requireAPIKey bool) (config.Config, error) {
	cfg, err := config.Load(configPath, dataDir)
	if errors.Is(err, config.ErrMissingAPIKey) && !requireAPIKey {
		err = nil
	}
	return cfg, err
}

// openEnv loads config, builds the logger and opens the store. The index
// itself is left alone.
func openEnv(ctx context.Context, requireAPIKey bool) (*env, error) {
	cfg, err := loadConfig(requireAPIKey)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}
