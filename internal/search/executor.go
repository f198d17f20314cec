package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/store"
)

// Querier is the read side of *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs ranked searches. It holds no mutable state and is safe for
// concurrent use.
type Executor struct {
	db    Querier
	sql   string
	limit int
}

// NewExecutor prepares the ranking SQL for the given weights. limit <= 0
// falls back to the default cap.
func NewExecutor(db Querier, weights config.RankingWeights, limit int) *Executor {
	if limit <= 0 {
		limit = config.CurrentDefaults.SearchLimit
	}
	return &Executor{
		db:    db,
		sql:   rankingSQL(weights),
		limit: limit,
	}
}

// rankingSQL inlines the weights into the bm25 call in index column order.
// They come from config, never from a request.
func rankingSQL(weights config.RankingWeights) string {
	args := []string{store.IndexTable}
	for _, w := range weights.Ordered() {
		args = append(args, strconv.FormatFloat(w, 'f', -1, 64))
	}
	return fmt.Sprintf(`
SELECT %s, bm25(%s) AS score
FROM citation_fts
JOIN citation c ON c.id = citation_fts.rowid
WHERE citation_fts MATCH ?
ORDER BY score
LIMIT ?`, store.CitationColumns("c"), strings.Join(args, ", "))
}

// Limit returns the result cap.
func (e *Executor) Limit() int { return e.limit }

// Search builds a match expression from raw user text and runs it. Blank
// input returns no results without touching the database.
func (e *Executor) Search(ctx context.Context, raw string) ([]models.SearchResult, error) {
	return e.SearchExpression(ctx, BuildQuery(raw))
}

// SearchExpression runs an already built FTS5 expression. Results come back
// best first: bm25 scores are negative and lower means more relevant.
func (e *Executor) SearchExpression(ctx context.Context, expr string) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	if strings.TrimSpace(expr) == "" {
		return results, nil
	}

	rows, err := e.db.QueryContext(ctx, e.sql, expr, e.limit)
	if err != nil {
		return nil, classify(expr, err)
	}
	defer rows.Close()

	for rows.Next() {
		var score float64
		c, err := store.ScanCitation(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, models.SearchResult{Citation: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(expr, err)
	}
	return results, nil
}

func classify(expr string, err error) error {
	if isMatchSyntaxError(expr, err) {
		return &QueryError{Expr: expr, Err: err}
	}
	return fmt.Errorf("searching citations: %w", err)
}
