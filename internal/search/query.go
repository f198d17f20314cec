// Package search turns free text into FTS5 match expressions and runs ranked
// queries against the citation index.
package search

import (
	"strings"
	"unicode/utf8"
)

// prefixMinLen is the shortest term length that gets a prefix marker.
// Shorter terms would match far too many indexed words.
const prefixMinLen = 3

// BuildQuery converts raw user text into an FTS5 expression: each
// whitespace separated term becomes a quoted string, terms of three or more
// characters also become prefix queries, and all terms are ORed.
//
//	detention of petitioner  ->  "detention"* OR "of" OR "petitioner"*
//
// Quoting neutralises FTS5 operators and punctuation; embedded double quotes
// are doubled and NUL bytes, which end the string inside SQLite, separate
// terms like whitespace. Blank input yields "".
func BuildQuery(raw string) string {
	terms := strings.Fields(strings.ReplaceAll(raw, "\x00", " "))
	clauses := make([]string, 0, len(terms))
	for _, t := range terms {
		clauses = append(clauses, termClause(t))
	}
	return strings.Join(clauses, " OR ")
}

func termClause(term string) string {
	quoted := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	if utf8.RuneCountInString(term) >= prefixMinLen {
		return quoted + "*"
	}
	return quoted
}
