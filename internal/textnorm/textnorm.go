// Package textnorm folds free-text complaint responses into a comparable
// form shared by keyword matching and word-frequency counting.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveAccents strips combining marks, so "Café" becomes "Cafe".
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Fields lowercases s, removes accents and splits it on every rune that is
// neither a letter nor a digit.
func Fields(s string) []string {
	s = strings.ToLower(RemoveAccents(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize joins Fields with single spaces.
func Normalize(s string) string {
	return strings.Join(Fields(s), " ")
}

// Padded returns Normalize(s) wrapped in spaces. Substring matches between
// padded strings only ever align on word boundaries.
func Padded(s string) string {
	n := Normalize(s)
	if n == "" {
		return ""
	}
	return " " + n + " "
}
