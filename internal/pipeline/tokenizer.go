package pipeline

import (
	"regexp"
	"unicode/utf8"
)

// tokenRegex matches words (allowing inner - and _) or single symbols.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+(?:[-_][\p{L}\p{M}\p{N}_]+)*|\S`)

// ClipText returns the longest prefix of text, at most maxChars characters
// (runes) long, that ends on a token boundary. Only a first token longer
// than maxChars gets cut, and then between runes.
func ClipText(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	// Byte offset just past the maxChars-th rune.
	limit, n := 0, 0
	for i := range text {
		if n == maxChars {
			limit = i
			break
		}
		n++
	}

	// FindAllStringIndex returns [[start, end], [start, end], ...]
	tokenIndices := tokenRegex.FindAllStringIndex(text, -1)

	end := 0
	for _, idx := range tokenIndices {
		if idx[1] > limit {
			break
		}
		end = idx[1]
	}

	if end == 0 {
		end = limit
	}
	return text[:end]
}
