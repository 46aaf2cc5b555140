package export

import (
	"fmt"
	"strings"
)

// EncodeList renders labels the way the table column stores them:
// ['Garbage', 'Roads']. A label containing a single quote but no double
// quote is wrapped in double quotes.
func EncodeList(labels []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, l := range labels {
		if i > 0 {
			b.WriteString(", ")
		}
		quote := byte('\'')
		if strings.Contains(l, "'") && !strings.Contains(l, `"`) {
			quote = '"'
		}
		b.WriteByte(quote)
		for j := 0; j < len(l); j++ {
			c := l[j]
			if c == '\\' || c == quote {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
		b.WriteByte(quote)
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeList parses a list written by EncodeList. Either quote style is
// accepted for each element.
func DecodeList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed category list %q", s)
	}
	body := s[1 : len(s)-1]
	out := []string{}

	i := 0
	skipSpace := func() {
		for i < len(body) && (body[i] == ' ' || body[i] == '\t') {
			i++
		}
	}
	for {
		skipSpace()
		if i >= len(body) {
			return out, nil
		}
		quote := body[i]
		if quote != '\'' && quote != '"' {
			return nil, fmt.Errorf("malformed category list %q: expected quote at %d", s, i+1)
		}
		i++
		var b strings.Builder
		closed := false
		for i < len(body) {
			c := body[i]
			i++
			if c == '\\' && i < len(body) {
				b.WriteByte(body[i])
				i++
				continue
			}
			if c == quote {
				closed = true
				break
			}
			b.WriteByte(c)
		}
		if !closed {
			return nil, fmt.Errorf("malformed category list %q: unterminated string", s)
		}
		out = append(out, b.String())

		skipSpace()
		if i >= len(body) {
			return out, nil
		}
		if body[i] != ',' {
			return nil, fmt.Errorf("malformed category list %q: expected comma at %d", s, i+1)
		}
		i++
	}
}
