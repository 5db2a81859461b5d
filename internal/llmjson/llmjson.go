// Package llmjson recovers JSON documents from model output that may be
// wrapped in markdown fences or surrounded by prose.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

const errExcerptLen = 500

// Clean strips markdown code fences and any text outside the outermost
// JSON object.
func Clean(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Decode unmarshals model output into out, trying the raw text first and
// the cleaned form second. On failure the error carries a short excerpt of
// the offending text for diagnosis.
func Decode(text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	cleaned := Clean(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		excerpt := cleaned
		if len(excerpt) > errExcerptLen {
			excerpt = excerpt[:errExcerptLen] + "..."
		}
		return eris.Wrap(err, "llmjson: decode model output: "+excerpt)
	}
	return nil
}
