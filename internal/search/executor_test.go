package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), config.DatabaseConfig{
		Path:   filepath.Join(t.TempDir(), "citations.db"),
		Driver: config.DriverModernc,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.EnsureIndex(context.Background())
	require.NoError(t, err)
	return s
}

func newExecutor(s *store.Store) *Executor {
	return NewExecutor(s.DB(), config.CurrentDefaults.Weights, 0)
}

func create(t *testing.T, s *store.Store, journal, desc, keywords string) *models.Citation {
	t.Helper()
	c := &models.Citation{
		Journal:         journal,
		Parties:         "X v. Y",
		Court:           "Supreme Court",
		DateOfJudgement: models.NewDate(2020, time.January, 1),
		Sections:        "S.302",
		Description:     desc,
		Keywords:        keywords,
	}
	require.NoError(t, s.Create(context.Background(), c))
	return c
}

func ids(results []models.SearchResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	c := create(t, s, "AIR", "unlawful detention of the petitioner", "detention,liberty")

	results, err := exec.Search(context.Background(), "detention")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "AIR", got.Journal)
	assert.Equal(t, "X v. Y", got.Parties)
	assert.Equal(t, "Supreme Court", got.Court)
	assert.Equal(t, "2020-01-01", got.DateOfJudgement.String())
	assert.Equal(t, "S.302", got.Sections)
	assert.Equal(t, "detention,liberty", got.Keywords)
	assert.False(t, math.IsNaN(got.Score) || math.IsInf(got.Score, 0), "score must be finite")
}

func TestSearch_DescriptionSubstring(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	c := create(t, s, "SCC", "conviction under section 302 set aside for want of evidence", "")
	create(t, s, "SCC", "land acquisition compensation enhanced", "")

	for _, q := range []string{
		"conviction under section",
		"set aside",
		"want of evidence",
		"evid", // prefix of an indexed word
	} {
		results, err := exec.Search(context.Background(), q)
		require.NoError(t, err, q)
		assert.Contains(t, ids(results), c.ID, q)
	}
}

func TestSearch_PrefixOnlyForLongTerms(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	create(t, s, "SCC", "petition dismissed", "")

	results, err := exec.Search(context.Background(), "pet")
	require.NoError(t, err)
	assert.Len(t, results, 1, "three characters is a prefix query")

	results, err = exec.Search(context.Background(), "pe")
	require.NoError(t, err)
	assert.Empty(t, results, "two characters must match a whole word")
}

func TestSearch_SingleCharacterTerm(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	c := create(t, s, "SCC", "appeal under article 32 a writ", "")

	results, err := exec.Search(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(results))

	results, err = exec.Search(context.Background(), "w")
	require.NoError(t, err)
	assert.Empty(t, results, "no prefix expansion for a single character")
}

func TestSearch_DeletedCitationDisappears(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)
	ctx := context.Background()

	c := create(t, s, "SCC", "extradition treaty interpreted", "")
	other := create(t, s, "SCC", "treaty obligations of the state", "")

	require.NoError(t, s.Delete(ctx, c.ID))

	results, err := exec.Search(ctx, "extradition")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = exec.Search(ctx, "treaty")
	require.NoError(t, err)
	assert.Equal(t, []int64{other.ID}, ids(results))
}

func TestSearch_NoMatchIsEmptyNotError(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	create(t, s, "SCC", "tenancy dispute", "")

	results, err := exec.Search(context.Background(), "zebra")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_BlankQuery(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	results, err := exec.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_SpecialCharactersAreSafe(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	create(t, s, "SCC", "bail granted", "")

	for _, q := range []string{`"bail`, `bail*`, `NOT bail`, `(bail`, `description:bail`, `bail^`} {
		_, err := exec.Search(context.Background(), q)
		assert.NoError(t, err, q)
	}
}

func TestSearchExpression_MalformedIsQueryError(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	create(t, s, "SCC", "bail granted", "")

	for _, expr := range []string{`"bail`, `bail AND`, `(bail`} {
		_, err := exec.SearchExpression(context.Background(), expr)
		require.Error(t, err, expr)
		assert.True(t, errors.Is(err, ErrQuery), "%q: %v", expr, err)

		var qe *QueryError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, expr, qe.Expr)
	}
}

func TestSearch_NulByteIsNeutralised(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	c := create(t, s, "SCC", "bail granted", "")
	create(t, s, "AIR", "writ dismissed", "")

	results, err := exec.Search(context.Background(), "\x00bail")
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(results))
}

func TestSearchExpression_UnknownFilterColumnIsQueryError(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	create(t, s, "SCC", "bail granted", "")

	_, err := exec.SearchExpression(context.Background(), `headnote : bail`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuery), "%v", err)
}

type failingQuerier struct{ err error }

func (f failingQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, f.err
}

func TestSearch_CitationSchemaDriftIsNotQueryError(t *testing.T) {
	exec := NewExecutor(failingQuerier{err: errors.New("SQL logic error: no such column: c.pdf_path (1)")},
		config.CurrentDefaults.Weights, 0)

	_, err := exec.Search(context.Background(), "bail")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuery))
	assert.Contains(t, err.Error(), "pdf_path")
}

func TestSearch_MissingIndexIsNotQueryError(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	_, err := s.DB().Exec(`DROP TABLE citation_fts`)
	require.NoError(t, err)

	_, err = exec.Search(context.Background(), "bail")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuery))
}

func TestSearch_CapsResults(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	for i := 0; i < 150; i++ {
		create(t, s, "SCC", fmt.Sprintf("negligence claim number %d", i), "")
	}

	results, err := exec.Search(context.Background(), "negligence")
	require.NoError(t, err)
	assert.Len(t, results, 100)
	assert.Equal(t, 100, exec.Limit())
}

func TestSearch_OrderedByScore(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	for i := 0; i < 4; i++ {
		create(t, s, "AIR", fmt.Sprintf("unrelated filler %d", i), "")
	}
	inDescription := create(t, s, "AIR", "custody dispute", "")
	inJournal := create(t, s, "custody reports", "maintenance dispute", "")

	results, err := exec.Search(context.Background(), "custody")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []int64{inDescription.ID, inJournal.ID}, ids(results),
		"description outweighs journal")
	assert.LessOrEqual(t, results[0].Score, results[1].Score, "ascending score")

	flipped := NewExecutor(s.DB(), config.RankingWeights{
		config.FieldDescription: 0.1,
		config.FieldJournal:     10,
	}, 0)
	results, err = flipped.Search(context.Background(), "custody")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, inJournal.ID, results[0].ID)
}

func TestSearch_BadStoredDateBecomesNoDate(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	_, err := s.DB().Exec(`INSERT INTO citation (journal, parties, court, date_of_judgement, description)
		VALUES ('SCC', 'A v. B', 'High Court', 'sometime in 1999', 'arbitration award challenged')`)
	require.NoError(t, err)
	good := create(t, s, "SCC", "arbitration clause enforced", "")

	results, err := exec.Search(context.Background(), "arbitration")
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		if r.ID == good.ID {
			assert.True(t, r.DateOfJudgement.Valid())
		} else {
			assert.False(t, r.DateOfJudgement.Valid(), "unparseable date is reported as no date")
		}
	}
}

func TestSearch_Concurrent(t *testing.T) {
	s := setupTestStore(t)
	exec := newExecutor(s)

	for i := 0; i < 10; i++ {
		create(t, s, "SCC", fmt.Sprintf("income tax assessment %d", i), "")
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := exec.Search(context.Background(), "income tax")
			if err == nil && len(results) != 10 {
				err = fmt.Errorf("got %d results", len(results))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRankingSQL_UsesColumnOrder(t *testing.T) {
	q := rankingSQL(config.CurrentDefaults.Weights)
	assert.Contains(t, q, "bm25(citation_fts, 5, 3, 2, 1.5, 1.5, 1)")
	assert.Contains(t, q, "ORDER BY score")
}
