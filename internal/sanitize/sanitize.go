// Package sanitize bounds and cleans free text submitted by visitors and the admin.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects how markup is neutralised.
type Mode int

const (
	// Plain only truncates and trims.
	Plain Mode = iota
	// Escape replaces & < > " ' with HTML entities. Used for comment bodies.
	Escape
	// Strip removes tag shaped substrings and stray angle brackets. Used for names and URLs.
	Strip
)

//nolint:gochecknoglobals
var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	angleBracket = strings.NewReplacer("<", "", ">", "")

	entities = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
)

// FreeText truncates s to maxLen characters, applies mode and trims surrounding
// whitespace. An empty result means the caller got no usable content.
func FreeText(s string, maxLen int, mode Mode) string {
	s = Truncate(s, maxLen)

	switch mode {
	case Escape:
		s = entities.Replace(s)
	case Strip:
		s = angleBracket.Replace(tagPattern.ReplaceAllString(s, ""))
	case Plain:
	}

	return strings.TrimSpace(s)
}

// Truncate cuts s to at most maxLen characters. maxLen <= 0 means no bound.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}

	return s
}
