package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuery marks a match expression the index engine rejected.
var ErrQuery = errors.New("malformed search query")

// QueryError carries the rejected expression. Callers treat it as "no usable
// results" rather than a server failure.
type QueryError struct {
	Expr string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("search query %q: %v", e.Expr, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// isMatchSyntaxError reports whether err came from the FTS5 expression
// parser rather than from the database itself (missing table or column, I/O).
// "no such column" only counts when expr carries a column filter; otherwise
// it names a column of the citation table.
func isMatchSyntaxError(expr string, err error) bool {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "fts5:"),
		strings.Contains(msg, "unterminated string"),
		strings.Contains(msg, "malformed MATCH"):
		return true
	case strings.Contains(msg, "no such column"):
		return hasColumnFilter(expr)
	}
	return false
}

// hasColumnFilter reports whether expr has a ':' outside a quoted string.
func hasColumnFilter(expr string) bool {
	quoted := false
	for _, r := range expr {
		switch r {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				return true
			}
		}
	}
	return false
}
