// Package resolver maps entity names from session summaries onto registered
// entities. A single canonical form backs every rung of the matching ladder,
// so dictionary patterns, exact lookups, and fuzzy comparisons all see the
// same text.
package resolver

import (
	"strings"
	"unicode"

	apperrors "github.com/kittclouds/campaignkit/internal/errors"
)

// isJoiner returns true for punctuation that commonly appears inside names.
// These are preserved during canonicalization so multiword entities stay
// coherent: "Monkey D. Luffy", "O'Brien", "Jean-Luc", "AT&T".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘', // apostrophe, curly apostrophe variants
		'-', '–', '—', // hyphen, en-dash, em-dash
		'·', '.', '_', '/', '#', '&': // middle dot, period, underscore, etc.
		return true
	default:
		return false
	}
}

// isSeparator returns true for characters that split tokens.
func isSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || isJoiner(r) {
		return false
	}
	return true
}

// Canonicalize transforms a name into its matching form. Rules:
// - Fold to lowercase
// - Normalize curly quotes and long dashes to ASCII
// - Preserve letters, digits, and joiners
// - Replace every other character run with a single space
// - Trim leading/trailing spaces
//
// The same function canonicalizes both dictionary patterns and scanned text.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := unicode.ToLower(ch)

		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else {
			if !lastWasSpace {
				out.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}

	result := out.String()
	if len(result) > 0 && result[len(result)-1] == ' ' {
		result = result[:len(result)-1]
	}
	return result
}

// Key canonicalizes a display name into a registry key. Names that
// canonicalize to nothing are rejected as INVALID_ENTITY_NAME.
func Key(name string) (string, error) {
	key := Canonicalize(name)
	if key == "" {
		return "", apperrors.Ef(apperrors.CodeInvalidEntityName, "resolver.Key",
			"entity name %q is empty after canonicalization", name)
	}
	return key, nil
}

// tokens splits a canonical form into its space-separated tokens.
func tokens(key string) []string {
	return strings.Fields(key)
}
