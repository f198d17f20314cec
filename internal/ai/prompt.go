package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/GonzoDMX/citation-index/internal/models"
)

const promptTemplate = `You are a legal document analyzer. From the text provided, extract the following information. Do not summarize or change the wording.
Required JSON structure:
{
    "journal": "journal name or empty string",
    "parties": "case parties or empty string",
    "court": "court name or empty string",
    "date_of_judgement": "YYYY-MM-DD format or empty string",
    "sections": "relevant sections or empty string",
    "description": "The full, verbatim text of the headnotes. Do not summarize.",
    "keywords": "A comma-separated list of 5-7 relevant legal keywords from the text."
}
Important: Return ONLY the JSON object, no other text, no markdown formatting, no explanations.
TEXT TO ANALYZE:
%s
`

// BuildPrompt wraps already clipped document text in the extraction prompt.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, from a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop the info string ("json") up to the first newline.
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseReply decodes a model reply into CitationFields. Every field is
// present in the result: missing or null keys become "". Lists are joined
// with ", " and other scalars are formatted, since models do not always
// honor the requested string types.
func ParseReply(raw string) (models.CitationFields, error) {
	body := stripFences(raw)
	if body == "" {
		return models.CitationFields{}, fmt.Errorf("%w: empty reply", ErrExtractionFailed)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return models.CitationFields{}, fmt.Errorf("%w: reply is not a JSON object: %v", ErrExtractionFailed, err)
	}

	return models.CitationFields{
		Journal:         fieldString(obj["journal"]),
		Parties:         fieldString(obj["parties"]),
		Court:           fieldString(obj["court"]),
		DateOfJudgement: fieldString(obj["date_of_judgement"]),
		Sections:        fieldString(obj["sections"]),
		Description:     fieldString(obj["description"]),
		Keywords:        fieldString(obj["keywords"]),
	}, nil
}

func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := fieldString(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
