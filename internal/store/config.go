package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GonzoDMX/citation-index/internal/config"
)

// GetDBConfig reads the stamped index configuration from the config table.
func (s *Store) GetDBConfig(ctx context.Context) (config.DBState, error) {
	var state config.DBState

	// Read all config keys into a map for easy access
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM config")
	if err != nil {
		return state, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err == nil {
			kv[k] = v.String
		}
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	// Map to DBState struct
	state.AppVersion = kv["app_version"]
	state.IndexVersion = kv["index_version"]
	state.IndexTokenizer = kv["index_tokenizer"]
	state.IndexColumns = kv["index_columns"]

	return state, nil
}

// stampIndexConfig records which index definition built citation_fts, so a
// later binary can detect a mismatch (see config.CheckCompatibility).
func stampIndexConfig(ctx context.Context, tx *sql.Tx) error {
	defaults := config.CurrentDefaults

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO config (key, value) VALUES
		('index_created_at', ?),
		('app_version', ?),
		('index_version', ?),
		('index_tokenizer', ?),
		('index_columns', ?)
	`,
		time.Now().UTC().Format(time.RFC3339),
		defaults.AppVersion,
		defaults.Index.Version,
		defaults.Index.Tokenizer,
		defaults.Index.ColumnList(),
	)
	if err != nil {
		return fmt.Errorf("stamping index config: %w", err)
	}
	return nil
}
