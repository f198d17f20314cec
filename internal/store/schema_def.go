package store

// SchemaSQL defines the primary tables. It is safe to run on every start.
const SchemaSQL = `
-- ========================================================
-- 1. SYSTEM & CONFIG
-- ========================================================
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT
);

-- ========================================================
-- 2. CITATIONS
-- ========================================================

-- AUTOINCREMENT keeps ids from ever being reused, so an FTS rowid can
-- only ever belong to one citation.
CREATE TABLE IF NOT EXISTS citation (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    journal VARCHAR(100) NOT NULL,
    parties VARCHAR(200) NOT NULL,
    court VARCHAR(100) NOT NULL,
    date_of_judgement DATE NOT NULL,  -- YYYY-MM-DD
    sections VARCHAR(500),
    description TEXT NOT NULL CHECK (length(trim(description)) > 0),
    keywords VARCHAR(500),            -- comma separated
    pdf_path VARCHAR(200),            -- file name under the uploads dir
    date_added DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_citation_date_added ON citation(date_added);
`

// IndexTable is the name of the FTS5 table; its shadow docsize table holds
// exactly one row per indexed citation.
const (
	IndexTable        = "citation_fts"
	indexDocsizeTable = "citation_fts_docsize"
)

// IndexTableSQL creates the external content index. Column order matters:
// bm25 weights are positional (see config.IndexColumns).
const IndexTableSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS citation_fts USING fts5(
    description,
    keywords,
    parties,
    court,
    sections,
    journal,
    content='citation',
    content_rowid='id',
    tokenize='unicode61'
);`

// IndexTriggersSQL keeps citation_fts in sync with citation. The delete hook
// fires AFTER DELETE; it still runs inside the deleting statement, so the
// row and its index entry disappear together.
var IndexTriggersSQL = []string{
	`CREATE TRIGGER IF NOT EXISTS citation_ai AFTER INSERT ON citation BEGIN
  INSERT INTO citation_fts(rowid, description, keywords, parties, court, sections, journal)
  VALUES (new.id, new.description, new.keywords, new.parties, new.court, new.sections, new.journal);
END;`,
	`CREATE TRIGGER IF NOT EXISTS citation_ad AFTER DELETE ON citation BEGIN
  INSERT INTO citation_fts(citation_fts, rowid, description, keywords, parties, court, sections, journal)
  VALUES ('delete', old.id, old.description, old.keywords, old.parties, old.court, old.sections, old.journal);
END;`,
	`CREATE TRIGGER IF NOT EXISTS citation_au AFTER UPDATE ON citation BEGIN
  INSERT INTO citation_fts(citation_fts, rowid, description, keywords, parties, court, sections, journal)
  VALUES ('delete', old.id, old.description, old.keywords, old.parties, old.court, old.sections, old.journal);
  INSERT INTO citation_fts(rowid, description, keywords, parties, court, sections, journal)
  VALUES (new.id, new.description, new.keywords, new.parties, new.court, new.sections, new.journal);
END;`,
}

// IndexTriggerNames lists the triggers created by IndexTriggersSQL.
var IndexTriggerNames = []string{"citation_ai", "citation_ad", "citation_au"}

const backfillSQL = `
INSERT INTO citation_fts (rowid, description, keywords, parties, court, sections, journal)
SELECT id, description, keywords, parties, court, sections, journal FROM citation;`

var dropIndexSQL = []string{
	`DROP TRIGGER IF EXISTS citation_ai;`,
	`DROP TRIGGER IF EXISTS citation_ad;`,
	`DROP TRIGGER IF EXISTS citation_au;`,
	`DROP TABLE IF EXISTS citation_fts;`,
}
