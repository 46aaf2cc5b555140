// Package wordfreq turns classified responses into per-category word and
// phrase counts for word-cloud views.
package wordfreq

import (
	"unicode/utf8"

	"github.com/kiranshivaraju/venter/internal/textnorm"
)

// minPhraseCount is how often a two-word phrase must occur before it is kept.
const minPhraseCount = 2

// Frequencies maps a word or phrase to its number of occurrences.
type Frequencies map[string]int

// Tokens normalises text and drops stop words and one-letter tokens.
func Tokens(text string) []string {
	var out []string
	for _, tok := range textnorm.Fields(text) {
		if keep(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func keep(tok string) bool {
	return utf8.RuneCountInString(tok) > 1 && !IsStopWord(tok)
}

// Count tallies every kept word across texts. Two adjacent kept words form a
// phrase; phrases seen at least twice are counted alongside the words.
// Phrases never span a dropped token.
func Count(texts []string) Frequencies {
	words := Frequencies{}
	phrases := Frequencies{}
	for _, text := range texts {
		prev := ""
		for _, tok := range textnorm.Fields(text) {
			if !keep(tok) {
				prev = ""
				continue
			}
			words[tok]++
			if prev != "" {
				phrases[prev+" "+tok]++
			}
			prev = tok
		}
	}
	for p, n := range phrases {
		if n >= minPhraseCount {
			words[p] = n
		}
	}
	return words
}
