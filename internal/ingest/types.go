package ingest

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// SupportedExtensions defines the allow-list for file extensions.
// Only PDFs carry judgements we can extract headnotes from.
var SupportedExtensions = map[string]bool{
	".pdf": true,
}

// IsSupported determines if a file should be processed based on its
// content (Magic Numbers) and its name (Extension).
func IsSupported(filename string, headerBytes []byte) bool {
	// 1. Get the file extension (lowercase)
	ext := strings.ToLower(filepath.Ext(filename))

	// If the extension isn't even on our list, reject immediately.
	if !SupportedExtensions[ext] {
		return false
	}

	// 2. Sniff the MIME type from the first 512 bytes.
	// Go's http.DetectContentType is reliable for PDFs (%PDF- magic).
	return http.DetectContentType(headerBytes) == "application/pdf"
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SafeFilename reduces an uploaded file name to a flat, ASCII name that is
// safe to join onto the uploads directory: path components are dropped,
// whitespace becomes '_', anything else outside [A-Za-z0-9_.-] is removed,
// and leading dots are stripped. It returns "" when nothing usable remains.
func SafeFilename(name string) string {
	// Treat both separators as path separators regardless of OS.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	return name
}
