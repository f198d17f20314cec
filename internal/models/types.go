package models

import (
	"strings"
	"time"
)

// Citation is a stored legal case citation.
type Citation struct {
	ID              int64     `json:"id"`
	Journal         string    `json:"journal"`
	Parties         string    `json:"parties"`
	Court           string    `json:"court"`
	DateOfJudgement Date      `json:"date_of_judgement"`
	Sections        string    `json:"sections,omitempty"`
	Description     string    `json:"description"` // verbatim headnote
	Keywords        string    `json:"keywords,omitempty"`
	PDFPath         string    `json:"pdf_path,omitempty"`
	DateAdded       time.Time `json:"date_added"`
}

// KeywordList splits the comma separated keywords, dropping blanks.
func (c Citation) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(c.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// SearchResult is a citation annotated with its bm25 score. Lower is more
// relevant. The score only ever lives in memory.
type SearchResult struct {
	Citation
	Score float64 `json:"score"`
}

// CitationFields is the flat, all-string form of a citation used both for
// create requests and for what the extraction gateway returns.
type CitationFields struct {
	Journal         string `json:"journal"`
	Parties         string `json:"parties"`
	Court           string `json:"court"`
	DateOfJudgement string `json:"date_of_judgement"` // YYYY-MM-DD or empty
	Sections        string `json:"sections"`
	Description     string `json:"description"`
	Keywords        string `json:"keywords"`
	PDFPath         string `json:"pdf_path,omitempty"`
}
