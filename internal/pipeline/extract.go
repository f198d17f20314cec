package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dslipak/pdf" // Pure Go PDF text extractor
)

// MaxFileSize - 50MB hard limit for text extraction
const MaxFileSize = 50 * 1024 * 1024

// ErrNoText means the PDF opened fine but its first page has no
// extractable text (a scanned image, or an empty document).
var ErrNoText = errors.New("no text on first page")

// ExtractFirstPage returns the plain text of page one of the PDF at path.
// Headnotes sit on the first page of a reported judgement, so the rest of
// the document is never read.
func ExtractFirstPage(path string) (string, error) {
	// 1. Size Safety Check
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file exceeds size limit of 50MB")
	}

	// 2. Open
	r, err := openPDF(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return "", ErrNoText
	}

	// 3. First page only
	text, err := pageText(r, 1)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// openPDF wraps pdf.Open; the parser panics on some truncated files.
func openPDF(path string) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return pdf.Open(path)
}

// pageText extracts one page, loading the fonts it references so encoded
// glyphs decode to text.
func pageText(r *pdf.Reader, n int) (text string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page %d: %v", n, rec)
		}
	}()

	p := r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	return p.GetPlainText(fonts)
}
