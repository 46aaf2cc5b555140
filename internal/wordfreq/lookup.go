package wordfreq

import (
	"sort"
	"strings"
)

// WordCount is one word-cloud term.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Lookup returns the frequencies of category in domain sorted by word. A
// stored label matches when its first line, trimmed, equals the trimmed
// category; the last match wins. The key "items" is reported as "item",
// replacing any "item" count. Unknown domains or categories yield an empty
// list.
func Lookup(doc Doc, domain, category string) []WordCount {
	want := strings.TrimSpace(category)
	var words Frequencies
	for _, e := range doc[domain] {
		if firstLine(e.Label) == want {
			words = e.Words
		}
	}

	renamed := make(Frequencies, len(words))
	for w, n := range words {
		renamed[w] = n
	}
	if n, ok := renamed["items"]; ok {
		delete(renamed, "items")
		renamed["item"] = n
	}

	out := make([]WordCount, 0, len(renamed))
	for w, n := range renamed {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out
}

// Categories lists the stored labels of domain, first line only.
func Categories(doc Doc, domain string) []string {
	entries := doc[domain]
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, firstLine(e.Label))
	}
	return out
}

func firstLine(label string) string {
	line, _, _ := strings.Cut(label, "\n")
	return strings.TrimSpace(line)
}
