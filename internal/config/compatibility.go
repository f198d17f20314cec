package config

import (
	"fmt"
)

type MigrationStatus string

const (
	StatusCompatible      MigrationStatus = "compatible"
	StatusUpdateAvailable MigrationStatus = "update_available" // Optional (app version)
	StatusIncompatible    MigrationStatus = "incompatible"     // Mandatory (index shape)
	StatusUnstamped       MigrationStatus = "unstamped"
)

// DBState represents the index config we read from the SQLite config table
type DBState struct {
	AppVersion     string
	IndexVersion   string
	IndexTokenizer string
	IndexColumns   string
}

// Empty reports whether nothing has been stamped yet.
func (s DBState) Empty() bool {
	return s.IndexVersion == "" && s.IndexColumns == "" && s.IndexTokenizer == ""
}

// CheckCompatibility compares the DB's stamped index against the App's defaults
func CheckCompatibility(db DBState) (MigrationStatus, []string) {
	if db.Empty() {
		return StatusUnstamped, nil
	}

	var issues []string
	status := StatusCompatible
	card := CurrentDefaults.Index

	// A different column set or tokenizer means the stored index cannot
	// answer queries built by this binary; it has to be rebuilt.
	if db.IndexVersion != card.Version ||
		db.IndexTokenizer != card.Tokenizer ||
		db.IndexColumns != card.ColumnList() {

		status = StatusIncompatible
		issues = append(issues, fmt.Sprintf(
			"Index Mismatch: DB has v%s (%s: %s), App requires v%s (%s: %s)",
			db.IndexVersion, db.IndexTokenizer, db.IndexColumns,
			card.Version, card.Tokenizer, card.ColumnList(),
		))
	}

	// Older app version with an identical index is fine, just noted.
	if db.AppVersion != CurrentDefaults.AppVersion {
		if status == StatusCompatible {
			status = StatusUpdateAvailable
		}
		issues = append(issues, fmt.Sprintf(
			"App Version: DB stamped by %s, running %s",
			db.AppVersion, CurrentDefaults.AppVersion,
		))
	}

	return status, issues
}
