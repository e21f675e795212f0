// Package textclean normalises free-text fields (reasons, topics,
// observations) before they are stored.
package textclean

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean strips all markup from s, keeps the plain text readable and trims
// surrounding whitespace.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// CleanPtr applies Clean through a pointer, preserving nil.
func CleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := Clean(*s)
	return &c
}
