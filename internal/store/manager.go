package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3"; FTS5 needs -tags sqlite_fts5
	_ "modernc.org/sqlite"          // driver "sqlite"; FTS5 built in

	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/logger"
)

// Store owns the SQLite handle holding both the citation table and its
// full-text index. Create one at startup and pass it to whatever needs it.
type Store struct {
	db     *sql.DB
	path   string
	driver string
	log    *logger.Logger
}

// Open creates the database directory if needed, opens the database with
// the configured driver and applies SchemaSQL. It does not touch the
// full-text index; call EnsureIndex for that.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}

	// 0755: Owner can read/write/exec, Group/Others can read/exec
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Path, err)
	}

	if _, err := db.ExecContext(ctx, SchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:     db,
		path:   cfg.Path,
		driver: cfg.Driver,
		log:    log.With("component", "store"),
	}, nil
}

// buildDSN enables WAL, a busy timeout and foreign keys on every pooled
// connection. The two drivers spell these differently.
func buildDSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverModernc:
		return cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case config.DriverCgo:
		return cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", nil
	default:
		return "", fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for read paths such as the search executor.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// withTx runs fn inside a transaction and commits only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
