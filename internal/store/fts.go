package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GonzoDMX/citation-index/internal/config"
)

// SetupReport describes what SetupIndex changed.
type SetupReport struct {
	Created    bool  // the FTS table did not exist and was created
	Backfilled int64 // rows copied from citation into an empty index
}

// IndexInfo is a snapshot of the index state.
type IndexInfo struct {
	Exists       bool                   `json:"exists"`
	Citations    int64                  `json:"citations"`
	IndexEntries int64                  `json:"index_entries"`
	Triggers     int                    `json:"triggers"`
	Stamped      config.DBState         `json:"stamped"`
	Status       config.MigrationStatus `json:"status"`
	Issues       []string               `json:"issues,omitempty"`
}

// EnsureIndex is the startup path. It probes citation_fts and runs the full
// SetupIndex only when the probe fails. An existing index whose stamped
// shape no longer matches this binary is dropped and rebuilt, since it is
// derived data.
func (s *Store) EnsureIndex(ctx context.Context) (SetupReport, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM citation_fts LIMIT 1`).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Info("full-text index missing, running setup", "probe_error", err.Error())
		return s.SetupIndex(ctx)
	}

	state, err := s.GetDBConfig(ctx)
	if err != nil {
		return SetupReport{}, &IndexSetupError{Step: "read index config", Err: err}
	}
	status, issues := config.CheckCompatibility(state)
	switch status {
	case config.StatusIncompatible:
		s.log.Warn("full-text index does not match this binary, recreating", "issues", issues)
		return s.RecreateIndex(ctx)
	case config.StatusUnstamped, config.StatusUpdateAvailable:
		// Built by an older binary or an external script; the shape was
		// checked above, so just record who owns it now.
		return s.SetupIndex(ctx)
	}
	return SetupReport{}, nil
}

// SetupIndex creates the FTS table and sync triggers when missing and
// backfills the index when it holds no entries. Running it again against a
// configured database changes nothing. Everything happens in one
// transaction.
func (s *Store) SetupIndex(ctx context.Context) (SetupReport, error) {
	var report SetupReport
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		report, err = s.setupIndexTx(ctx, tx)
		return err
	})
	if err != nil {
		return SetupReport{}, err
	}

	s.log.Info("full-text index ready",
		"created", report.Created,
		"backfilled", report.Backfilled,
	)
	return report, nil
}

func (s *Store) setupIndexTx(ctx context.Context, tx *sql.Tx) (SetupReport, error) {
	var report SetupReport

	exists, err := tableExists(ctx, tx, IndexTable)
	if err != nil {
		return report, &IndexSetupError{Step: "probe index table", Err: err}
	}

	if !exists {
		s.log.Info("creating full-text index table", "table", IndexTable)
		if _, err := tx.ExecContext(ctx, IndexTableSQL); err != nil {
			return report, &IndexSetupError{Step: "create index table", Err: err}
		}
		report.Created = true
	}

	// IF NOT EXISTS makes this a no-op on a configured database and
	// repairs a table whose triggers were dropped by hand.
	for i, trigger := range IndexTriggersSQL {
		if _, err := tx.ExecContext(ctx, trigger); err != nil {
			return report, &IndexSetupError{Step: "create trigger " + IndexTriggerNames[i], Err: err}
		}
	}

	// COUNT(*) on an external content table reads the content table,
	// so count index entries through the docsize shadow table.
	entries, err := countRows(ctx, tx, indexDocsizeTable)
	if err != nil {
		return report, &IndexSetupError{Step: "count index entries", Err: err}
	}
	if entries == 0 {
		res, err := tx.ExecContext(ctx, backfillSQL)
		if err != nil {
			return report, &IndexSetupError{Step: "backfill index", Err: err}
		}
		report.Backfilled, _ = res.RowsAffected()
	}

	if err := stampIndexConfig(ctx, tx); err != nil {
		return report, &IndexSetupError{Step: "stamp index config", Err: err}
	}
	return report, nil
}

// RecreateIndex drops the index and its triggers and sets them up again
// from the citation table. Drop and setup share one transaction, so a failed
// setup leaves the old index in place.
func (s *Store) RecreateIndex(ctx context.Context) (SetupReport, error) {
	var report SetupReport
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range dropIndexSQL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &IndexSetupError{Step: "drop index", Err: err}
			}
		}
		var err error
		report, err = s.setupIndexTx(ctx, tx)
		return err
	})
	if err != nil {
		return SetupReport{}, err
	}

	s.log.Info("full-text index recreated", "backfilled", report.Backfilled)
	return report, nil
}

// Rebuild regenerates every index entry from the citation table.
func (s *Store) Rebuild(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO citation_fts(citation_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	s.log.Info("full-text index rebuilt")
	return nil
}

// Verify runs the FTS5 integrity check. rank = 1 makes it compare the
// index against the citation table as well.
func (s *Store) Verify(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO citation_fts(citation_fts, rank) VALUES('integrity-check', 1)`); err != nil {
		return fmt.Errorf("index integrity check failed: %w", err)
	}
	return nil
}

// IndexEntryCount returns the number of rows held by the index itself.
func (s *Store) IndexEntryCount(ctx context.Context) (int64, error) {
	return countRows(ctx, s.db, indexDocsizeTable)
}

// Info reports counts, trigger presence and the stamped index config.
func (s *Store) Info(ctx context.Context) (IndexInfo, error) {
	var info IndexInfo
	var err error

	if info.Citations, err = s.Count(ctx); err != nil {
		return info, err
	}
	if info.Exists, err = tableExists(ctx, s.db, IndexTable); err != nil {
		return info, err
	}
	if info.Exists {
		if info.IndexEntries, err = s.IndexEntryCount(ctx); err != nil {
			return info, err
		}
	}
	if info.Triggers, err = countTriggers(ctx, s.db); err != nil {
		return info, err
	}
	if info.Stamped, err = s.GetDBConfig(ctx); err != nil {
		return info, err
	}
	info.Status, info.Issues = config.CheckCompatibility(info.Stamped)
	return info, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func countTriggers(ctx context.Context, q queryer) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND tbl_name = 'citation'`).Scan(&n)
	return n, err
}

// countRows counts a table whose name is a package constant.
func countRows(ctx context.Context, q queryer, table string) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}
