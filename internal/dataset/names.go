package dataset

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CanonicalName trims surrounding whitespace, lower-cases, and replaces each
// internal space with an underscore. It is idempotent.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// DisplayName turns a canonical name back into a title for labels,
// e.g. "sleep_duration" -> "Sleep Duration".
func DisplayName(canonical string) string {
	parts := strings.Fields(strings.ReplaceAll(canonical, "_", " "))
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToTitle(r)) + p[size:]
	}
	return strings.Join(parts, " ")
}
