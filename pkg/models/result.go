package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// NovelCategory is the reserved bucket for responses the classifier could
	// not assign. Its value is keyed by sub-category instead of a response list.
	NovelCategory = "Novel"

	// StatisticsEntry is the pseudo category some consumers append to a domain
	// to carry chart rows. It is never part of a persisted result.
	StatisticsEntry = "Statistics"

	// NoScore marks a response without an applicable confidence.
	NoScore = -1.0
)

// Response is a single classified text with its confidence.
type Response struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// UnmarshalJSON accepts both the "text" key and the older "response" key.
// A missing score decodes as NoScore.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text     *string  `json:"text"`
		Response *string  `json:"response"`
		Score    *float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Text = ""
	switch {
	case raw.Text != nil:
		r.Text = *raw.Text
	case raw.Response != nil:
		r.Text = *raw.Response
	}
	r.Score = NoScore
	if raw.Score != nil {
		r.Score = *raw.Score
	}
	return nil
}

// SubCategory groups unscored texts inside the Novel bucket.
type SubCategory struct {
	Name  string
	Texts []string
}

// Category is one classification label within a domain. Exactly one of
// Responses or Novel is meaningful: Novel is non-nil only for the
// unclassified bucket.
type Category struct {
	Name      string
	Responses []Response
	Novel     []SubCategory
}

// IsNovel reports whether the category is the sub-categorised bucket.
func (c *Category) IsNovel() bool {
	return c.Novel != nil
}

// Count is the number of responses in the category, summed over
// sub-categories for the Novel bucket.
func (c *Category) Count() int {
	if !c.IsNovel() {
		return len(c.Responses)
	}
	n := 0
	for _, sc := range c.Novel {
		n += len(sc.Texts)
	}
	return n
}

// Texts returns every response text in order, flattening sub-categories.
func (c *Category) Texts() []string {
	if !c.IsNovel() {
		out := make([]string, len(c.Responses))
		for i, r := range c.Responses {
			out[i] = r.Text
		}
		return out
	}
	var out []string
	for _, sc := range c.Novel {
		out = append(out, sc.Texts...)
	}
	return out
}

// Domain is a top-level grouping with its categories in classifier order.
type Domain struct {
	Name       string
	Categories []Category
}

// Category looks up a category by exact name.
func (d *Domain) Category(name string) (*Category, bool) {
	for i := range d.Categories {
		if d.Categories[i].Name == name {
			return &d.Categories[i], true
		}
	}
	return nil, false
}

// Novel returns the unclassified bucket if the domain has one.
func (d *Domain) Novel() (*Category, bool) {
	for i := range d.Categories {
		if d.Categories[i].IsNovel() {
			return &d.Categories[i], true
		}
	}
	return nil, false
}

// Result is the immutable nested output of the classifier for one artifact.
// Domain and category order is significant and survives JSON round trips.
type Result struct {
	Domains []Domain
}

// Domain looks up a domain by exact name.
func (r *Result) Domain(name string) (*Domain, bool) {
	for i := range r.Domains {
		if r.Domains[i].Name == name {
			return &r.Domains[i], true
		}
	}
	return nil, false
}

// DomainNames lists the domains in result order.
func (r *Result) DomainNames() []string {
	names := make([]string, len(r.Domains))
	for i, d := range r.Domains {
		names[i] = d.Name
	}
	return names
}

func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range r.Domains {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, d.Name); err != nil {
			return nil, err
		}
		b, err := d.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	r.Domains = nil
	if isNull(data) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return decodeObject(dec, func(name string) error {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("domain %q: %w", name, err)
		}
		d := Domain{Name: name}
		if err := d.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("domain %q: %w", name, err)
		}
		r.Domains = append(r.Domains, d)
		return nil
	})
}

func (d Domain) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Name); err != nil {
			return nil, err
		}
		var (
			b   []byte
			err error
		)
		if c.IsNovel() {
			b, err = marshalSubCategories(c.Novel)
		} else {
			responses := c.Responses
			if responses == nil {
				responses = []Response{}
			}
			b, err = json.Marshal(responses)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the category object of a domain. Values that are
// neither a response list nor a sub-category object (such as a chart
// payload stored under StatisticsEntry) are skipped.
func (d *Domain) UnmarshalJSON(data []byte) error {
	d.Categories = nil
	if isNull(data) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return decodeObject(dec, func(name string) error {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("category %q: %w", name, err)
		}
		c := Category{Name: name}
		switch firstByte(raw) {
		case '[':
			if err := json.Unmarshal(raw, &c.Responses); err != nil {
				return fmt.Errorf("category %q: %w", name, err)
			}
		case '{':
			subs, err := unmarshalSubCategories(raw)
			if err != nil {
				return fmt.Errorf("category %q: %w", name, err)
			}
			c.Novel = subs
		case 'n':
		default:
			return nil
		}
		d.Categories = append(d.Categories, c)
		return nil
	})
}

func marshalSubCategories(subs []SubCategory) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sc := range subs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, sc.Name); err != nil {
			return nil, err
		}
		texts := sc.Texts
		if texts == nil {
			texts = []string{}
		}
		b, err := json.Marshal(texts)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalSubCategories(data []byte) ([]SubCategory, error) {
	subs := []SubCategory{}
	dec := json.NewDecoder(bytes.NewReader(data))
	err := decodeObject(dec, func(name string) error {
		sc := SubCategory{Name: name}
		if err := dec.Decode(&sc.Texts); err != nil {
			return fmt.Errorf("sub category %q: %w", name, err)
		}
		subs = append(subs, sc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// decodeObject walks a JSON object key by key. fn is called with the decoder
// positioned at the key's value and must consume it.
func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func firstByte(data []byte) byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
