package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CategoryScore is one predicted category with its probability.
type CategoryScore struct {
	Category    string
	Probability float64
}

// RankedCategories is the classifier's top-k prediction for one text,
// highest probability first. It serialises as an ordered JSON object.
type RankedCategories []CategoryScore

// Top returns the highest ranked category.
func (rc RankedCategories) Top() (CategoryScore, bool) {
	if len(rc) == 0 {
		return CategoryScore{}, false
	}
	return rc[0], true
}

// Labels lists the category names in rank order.
func (rc RankedCategories) Labels() []string {
	out := make([]string, len(rc))
	for i, c := range rc {
		out[i] = c.Category
	}
	return out
}

func (rc RankedCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range rc {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Category); err != nil {
			return nil, err
		}
		b, err := json.Marshal(c.Probability)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rc *RankedCategories) UnmarshalJSON(data []byte) error {
	*rc = nil
	if isNull(data) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	out := RankedCategories{}
	err := decodeObject(dec, func(name string) error {
		var p float64
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		out = append(out, CategoryScore{Category: name, Probability: p})
		return nil
	})
	if err != nil {
		return err
	}
	*rc = out
	return nil
}

// TableRow is one record of the flat per-row result shape.
type TableRow struct {
	Index              int              `json:"index"`
	ProblemDescription string           `json:"problem_description"`
	Category           RankedCategories `json:"category"`
	HighestConfidence  float64          `json:"highest_confidence"`
	WardName           string           `json:"ward_name"`
	DateCreated        string           `json:"date_created"`
	Corrected          []string         `json:"corrected_category,omitempty"`
}

// PredictedLabels is the single-entry list written to the exported table
// for this row: the top predicted category, or nothing.
func (r *TableRow) PredictedLabels() []string {
	top, ok := r.Category.Top()
	if !ok {
		return []string{}
	}
	return []string{top.Category}
}

// Labels returns the user's corrected categories when present, else the
// predicted ones.
func (r *TableRow) Labels() []string {
	if r.Corrected != nil {
		return r.Corrected
	}
	return r.PredictedLabels()
}
