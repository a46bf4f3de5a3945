// Package sanitize strips markup from user-provided text before it is stored.
// This is part of the platform layer and contains no business logic.
package sanitize

import (
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML removes HTML tags, decodes the common entities and strips again
// so encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes multi-line free text such as condition notes. Line breaks
// are kept.
func Text(s string) string {
	return StripHTML(s)
}

// Line sanitizes a single-line field such as a condition title and collapses
// runs of whitespace.
func Line(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}
