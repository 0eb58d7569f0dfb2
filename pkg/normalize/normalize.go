// Package normalize canonicalizes the lookup keys clients type in: plates,
// phone numbers and confirmation codes.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks, so "Ș" becomes "S".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Plate uppercases, folds diacritics and drops everything but letters and digits.
// "b-123 abc" and "B 123 ABC" both become "B123ABC".
func Plate(s string) string {
	s = strings.ToUpper(foldDiacritics(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone keeps digits only, preserving a leading "+".
// Romanian numbers in the international form +40 7xx are rewritten to the
// national 07xx form so both spellings hit the same client.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	switch {
	case strings.HasPrefix(out, "+40"):
		out = "0" + out[3:]
	case strings.HasPrefix(out, "0040"):
		out = "0" + out[4:]
	}
	return out
}

// Code uppercases a confirmation code and trims it.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Name trims and collapses inner whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold is the case- and diacritic-insensitive form used for free-text search.
func Fold(s string) string {
	return strings.ToLower(foldDiacritics(strings.TrimSpace(s)))
}
