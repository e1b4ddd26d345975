package text

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean strips every HTML tag from s and trims surrounding whitespace.
// Entities are decoded again so plain text like "you & me" survives unchanged.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// CleanList applies Clean to each item and drops the ones left empty.
// The result is never nil.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = Clean(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
