// Package textsearch folds free text for case- and accent-insensitive matching.
package textsearch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips combining marks and collapses whitespace, so
// "José  Núñez" and "jose nunez" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// Key builds the stored search key for a record from its searchable fields.
func Key(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if folded := Fold(f); folded != "" {
			parts = append(parts, folded)
		}
	}
	return strings.Join(parts, " ")
}

// Match reports whether term occurs in any of fields after folding. An empty
// term matches everything.
func Match(term string, fields ...string) bool {
	needle := Fold(term)
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Fold(f), needle) {
			return true
		}
	}
	return false
}

// LikePattern escapes a folded term for a SQL LIKE with backslash escapes.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(Fold(term)) + "%"
}
