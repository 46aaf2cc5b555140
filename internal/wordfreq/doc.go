package wordfreq

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TableDomain is the single domain name used for flat-shape artifacts.
const TableDomain = "table"

// Entry is the frequency map of one category, keyed by the category label
// as it appears in the result.
type Entry struct {
	Label string
	Words Frequencies
}

// Doc maps a domain name to its entries in category order. It is the
// content of the word-cloud cache file.
type Doc map[string][]Entry

// MarshalJSON writes the entry as a single-key object {label: {word: count}}.
func (e Entry) MarshalJSON() ([]byte, error) {
	label, err := json.Marshal(e.Label)
	if err != nil {
		return nil, err
	}
	words := e.Words
	if words == nil {
		words = Frequencies{}
	}
	body, err := json.Marshal(words)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(label)
	buf.WriteByte(':')
	buf.Write(body)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]Frequencies
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("word-cloud entry must have exactly one label, got %d", len(m))
	}
	for label, words := range m {
		e.Label = label
		e.Words = words
		if e.Words == nil {
			e.Words = Frequencies{}
		}
	}
	return nil
}
