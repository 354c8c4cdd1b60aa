package request

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// knownMethods are the HTTP verbs a draft may use.
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
	"HEAD": true, "OPTIONS": true,
}

// NormalizeMethod upper-cases and trims an HTTP method, defaulting to GET.
func NormalizeMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return "GET"
	}
	return m
}

// ValidMethod reports whether method (after normalization) is a supported verb.
func ValidMethod(method string) bool {
	return knownMethods[NormalizeMethod(method)]
}

// CleanName trims a display name and collapses internal whitespace.
// Case is preserved.
func CleanName(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Normalize lowercases a cleaned name; used for case-insensitive name lookups.
func Normalize(s string) string {
	return strings.ToLower(CleanName(s))
}

// Truncate shortens s to at most max runes for presentation, ending with "…"
// when cut. Stored names are never truncated.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

// CopyName returns the display name for a duplicated tab.
func CopyName(name string) string {
	if name == "" {
		name = DefaultTabName
	}
	return name + " (Copy)"
}
