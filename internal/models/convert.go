package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a judgement date.
const DateLayout = "2006-01-02"

// timestampLayouts are the text forms SQLite and its drivers hand back for
// DATE/DATETIME columns.
var timestampLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// Date is a calendar date. The zero value means "no date".
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Valid reports whether a date is known.
func (d Date) Valid() bool { return !d.IsZero() }

func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ErrInvalidDate is returned by ParseDate for text that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return Date{t}, nil
}

// CoerceDate turns whatever a driver returned for a date column into a
// Date. Anything unparseable or absent becomes the zero "no date" value.
func CoerceDate(v any) Date {
	t := CoerceTime(v)
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// CoerceTime is CoerceDate for timestamps.
func CoerceTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		return parseTimestamp(x)
	case []byte:
		return parseTimestamp(string(x))
	default:
		return time.Time{}
	}
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToCitation validates the fields and converts them into a Citation ready
// to be stored. The judgement date is required here.
func (f CitationFields) ToCitation() (Citation, error) {
	c := Citation{
		Journal:     strings.TrimSpace(f.Journal),
		Parties:     strings.TrimSpace(f.Parties),
		Court:       strings.TrimSpace(f.Court),
		Sections:    strings.TrimSpace(f.Sections),
		Description: strings.TrimSpace(f.Description),
		Keywords:    strings.TrimSpace(f.Keywords),
		PDFPath:     strings.TrimSpace(f.PDFPath),
	}

	var missing []string
	for _, req := range []struct{ name, val string }{
		{"journal", c.Journal},
		{"parties", c.Parties},
		{"court", c.Court},
		{"date_of_judgement", f.DateOfJudgement},
		{"description", c.Description},
	} {
		if strings.TrimSpace(req.val) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Citation{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	d, err := ParseDate(f.DateOfJudgement)
	if err != nil {
		return Citation{}, err
	}
	c.DateOfJudgement = d
	return c, nil
}
