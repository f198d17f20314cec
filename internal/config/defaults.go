package config

import "strings"

// IndexField names one column of the full-text index.
type IndexField string

const (
	FieldDescription IndexField = "description"
	FieldKeywords    IndexField = "keywords"
	FieldParties     IndexField = "parties"
	FieldCourt       IndexField = "court"
	FieldSections    IndexField = "sections"
	FieldJournal     IndexField = "journal"
)

// IndexColumns is the column order of citation_fts. bm25 weights are
// positional, so anything that builds ranking SQL must walk this slice.
var IndexColumns = []IndexField{
	FieldDescription,
	FieldKeywords,
	FieldParties,
	FieldCourt,
	FieldSections,
	FieldJournal,
}

// RankingWeights maps an indexed field to its bm25 column weight.
type RankingWeights map[IndexField]float64

// Ordered returns the weights in index column order. Missing fields get 1.0,
// which is what bm25 assumes for an omitted weight.
func (w RankingWeights) Ordered() []float64 {
	out := make([]float64, len(IndexColumns))
	for i, f := range IndexColumns {
		v, ok := w[f]
		if !ok {
			v = 1.0
		}
		out[i] = v
	}
	return out
}

// IndexCard describes the exact shape of the full-text index this binary
// builds. It is stamped into the database so a later binary can tell
// whether the existing index still matches.
type IndexCard struct {
	Version   string       `json:"version"`
	Tokenizer string       `json:"tokenizer"`
	Columns   []IndexField `json:"columns"`
}

// ColumnList returns the columns as a comma separated list.
func (c IndexCard) ColumnList() string {
	parts := make([]string, len(c.Columns))
	for i, f := range c.Columns {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// SystemConfig represents the defaults for this version of the app.
type SystemConfig struct {
	AppVersion string
	Index      IndexCard
	Weights    RankingWeights
	// SearchLimit caps the number of rows a single search returns.
	SearchLimit int
	// MinExtractChars is the shortest PDF text worth sending to the model.
	MinExtractChars int
	// MaxPromptChars bounds how much PDF text goes into one prompt.
	MaxPromptChars int
}

// CurrentDefaults defines the configuration for THIS version of the binary.
// Bump Index.Version whenever the index definition changes.
var CurrentDefaults = SystemConfig{
	AppVersion: "0.1.0",

	Index: IndexCard{
		Version:   "1",
		Tokenizer: "unicode61",
		Columns:   IndexColumns,
	},

	Weights: RankingWeights{
		FieldDescription: 5.0,
		FieldKeywords:    3.0,
		FieldParties:     2.0,
		FieldCourt:       1.5,
		FieldSections:    1.5,
		FieldJournal:     1.0,
	},

	SearchLimit:     100,
	MinExtractChars: 50,
	MaxPromptChars:  8000,
}
