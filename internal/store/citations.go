package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/GonzoDMX/citation-index/internal/models"
)

// citationColumns is the column list every citation read selects, in the
// order ScanCitation expects.
var citationColumns = []string{
	"id", "journal", "parties", "court", "date_of_judgement",
	"sections", "description", "keywords", "pdf_path", "date_added",
}

// CitationColumns returns the citation column list, each qualified with
// alias when alias is not empty.
func CitationColumns(alias string) string {
	if alias == "" {
		return strings.Join(citationColumns, ", ")
	}
	cols := make([]string, len(citationColumns))
	for i, c := range citationColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanCitation reads one row selected with CitationColumns, followed by any
// extra destinations. Date columns are coerced, so an unparseable stored
// date comes back as the zero "no date" value instead of an error.
func ScanCitation(row RowScanner, extra ...any) (models.Citation, error) {
	var (
		c                          models.Citation
		judged, added              any
		sections, keywords, pdfRef sql.NullString
	)
	dest := append([]any{
		&c.ID, &c.Journal, &c.Parties, &c.Court, &judged,
		&sections, &c.Description, &keywords, &pdfRef, &added,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Citation{}, err
	}
	c.DateOfJudgement = models.CoerceDate(judged)
	c.DateAdded = models.CoerceTime(added)
	c.Sections = sections.String
	c.Keywords = keywords.String
	c.PDFPath = pdfRef.String
	return c, nil
}

func validateCitation(c *models.Citation) error {
	var missing []string
	if strings.TrimSpace(c.Journal) == "" {
		missing = append(missing, "journal")
	}
	if strings.TrimSpace(c.Parties) == "" {
		missing = append(missing, "parties")
	}
	if strings.TrimSpace(c.Court) == "" {
		missing = append(missing, "court")
	}
	if !c.DateOfJudgement.Valid() {
		missing = append(missing, "date_of_judgement")
	}
	if strings.TrimSpace(c.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidCitation, strings.Join(missing, ", "))
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts c and fills in its ID and DateAdded. The insert trigger
// writes the index entry in the same transaction.
func (s *Store) Create(ctx context.Context, c *models.Citation) error {
	if err := validateCitation(c); err != nil {
		return err
	}

	var (
		id    int64
		added any
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO citation (journal, parties, court, date_of_judgement, sections, description, keywords, pdf_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Journal, c.Parties, c.Court, c.DateOfJudgement.String(),
			nullString(c.Sections), c.Description, nullString(c.Keywords), nullString(c.PDFPath),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT date_added FROM citation WHERE id = ?`, id).Scan(&added)
	})
	if err != nil {
		return writeErr("create", err)
	}
	c.ID = id
	c.DateAdded = models.CoerceTime(added)

	s.log.Debug("citation created", "id", c.ID)
	return nil
}

// Update rewrites every mutable field of the citation with c.ID. The update
// trigger retracts the old index entry and inserts the new one atomically.
func (s *Store) Update(ctx context.Context, c *models.Citation) error {
	if err := validateCitation(c); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE citation SET journal = ?, parties = ?, court = ?, date_of_judgement = ?,
				sections = ?, description = ?, keywords = ?, pdf_path = ?
			WHERE id = ?`,
			c.Journal, c.Parties, c.Court, c.DateOfJudgement.String(),
			nullString(c.Sections), c.Description, nullString(c.Keywords), nullString(c.PDFPath),
			c.ID,
		)
		if err != nil {
			return err
		}
		return requireOneRow(res)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return writeErr("update", err)
	}
	return nil
}

// Delete removes the citation; the delete trigger retracts its index entry.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM citation WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireOneRow(res)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return writeErr("delete", err)
	}

	s.log.Debug("citation deleted", "id", id)
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one citation by id.
func (s *Store) Get(ctx context.Context, id int64) (models.Citation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+CitationColumns("")+` FROM citation WHERE id = ?`, id)
	c, err := ScanCitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Citation{}, ErrNotFound
	}
	if err != nil {
		return models.Citation{}, fmt.Errorf("reading citation %d: %w", id, err)
	}
	return c, nil
}

// List returns citations newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]models.Citation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+CitationColumns("")+` FROM citation ORDER BY date_added DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing citations: %w", err)
	}
	defer rows.Close()

	out := []models.Citation{}
	for rows.Next() {
		c, err := ScanCitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored citations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citation`).Scan(&n)
	return n, err
}
