// Package normalize provides utilities for normalizing user-supplied text so
// that lookups and filters behave the same across storage backends.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses whitespace.
// "  São   Paulo " -> "sao paulo".
func Fold(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Contains reports whether needle occurs in haystack ignoring case and accents.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// Email canonicalizes an email address for uniqueness checks.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ISBN trims an ISBN and uppercases the check character.
// Internal whitespace is dropped, hyphens are kept as written.
func ISBN(isbn string) string {
	return strings.ToUpper(strings.Join(strings.Fields(isbn), ""))
}

// Text trims s and collapses internal whitespace runs to a single space.
func Text(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
