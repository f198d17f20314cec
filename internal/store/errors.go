package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the citation does not exist.
	ErrNotFound = errors.New("citation not found")

	// ErrInvalidCitation indicates a citation failed validation before any write.
	ErrInvalidCitation = errors.New("invalid citation")

	// ErrWrite indicates a create/update/delete transaction failed and was
	// rolled back. Neither the citation nor its index entry changed.
	ErrWrite = errors.New("citation write failed")

	// ErrIndexSetup indicates the full-text index or its triggers could not
	// be created. The server cannot serve searches without them.
	ErrIndexSetup = errors.New("index setup failed")
)

// IndexSetupError reports which setup step failed.
type IndexSetupError struct {
	Step string
	Err  error
}

func (e *IndexSetupError) Error() string {
	msg := fmt.Sprintf("index setup: %s: %v", e.Step, e.Err)
	if missingFTS5(e.Err) {
		msg += " (SQLite was built without FTS5: use driver \"sqlite\" or build with -tags sqlite_fts5)"
	}
	return msg
}

func (e *IndexSetupError) Unwrap() error { return e.Err }

func (e *IndexSetupError) Is(target error) bool { return target == ErrIndexSetup }

func missingFTS5(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module: fts5")
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrWrite, op, err)
}
