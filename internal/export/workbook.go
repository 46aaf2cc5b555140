// Package export writes the downloadable representations of a
// classification: a per-domain workbook for nested results and an augmented
// CSV for the flat per-row shape.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet = "Sheet1"

	ColumnResponse = "response"
	ColumnScore    = "score"

	maxSheetName = 31
)

// Column is one category column group of a domain sheet after padding.
type Column struct {
	Category  string
	Responses []reshape.Cell
	Scores    []reshape.Cell
}

// DomainColumns builds the padded column groups of a domain. Every column
// has as many cells as the longest category. Novel texts are flattened in
// sub-category order and carry the NoScore sentinel.
func DomainColumns(d *models.Domain) []Column {
	responses := make([][]reshape.Cell, len(d.Categories))
	scores := make([][]reshape.Cell, len(d.Categories))
	for i := range d.Categories {
		c := &d.Categories[i]
		if c.IsNovel() {
			for _, text := range c.Texts() {
				responses[i] = append(responses[i], text)
				scores[i] = append(scores[i], models.NoScore)
			}
			continue
		}
		for _, r := range c.Responses {
			responses[i] = append(responses[i], r.Text)
			scores[i] = append(scores[i], r.Score)
		}
	}
	responses = reshape.PadColumns(responses, "")
	scores = reshape.PadColumns(scores, "")

	cols := make([]Column, len(d.Categories))
	for i := range d.Categories {
		cols[i] = Column{Category: d.Categories[i].Name, Responses: responses[i], Scores: scores[i]}
	}
	return cols
}

// WriteWorkbook writes one sheet per domain to path. Row 1 names each
// category, merged over its sub-columns; row 2 names the sub-columns. The
// keyword variant has no score sub-columns.
func WriteWorkbook(path string, res *models.Result, variant models.ModelVariant) error {
	f := excelize.NewFile()
	defer f.Close()

	names := SheetNames(res.DomainNames())
	for i := range res.Domains {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, names[0]); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(names[i]); err != nil {
			return fmt.Errorf("create sheet %q: %w", names[i], err)
		}
		if err := writeDomainSheet(f, names[i], &res.Domains[i], variant.Scored()); err != nil {
			return fmt.Errorf("domain %q: %w", res.Domains[i].Name, err)
		}
	}

	return artifact.WriteAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func writeDomainSheet(f *excelize.File, sheet string, d *models.Domain, scored bool) error {
	width := 1
	if scored {
		width = 2
	}

	for i, col := range DomainColumns(d) {
		first := i*width + 1
		if err := setCell(f, sheet, first, 1, col.Category); err != nil {
			return err
		}
		if scored {
			left, _ := excelize.CoordinatesToCellName(first, 1)
			right, _ := excelize.CoordinatesToCellName(first+1, 1)
			if err := f.MergeCell(sheet, left, right); err != nil {
				return fmt.Errorf("merge header: %w", err)
			}
		}
		if err := setCell(f, sheet, first, 2, ColumnResponse); err != nil {
			return err
		}
		if scored {
			if err := setCell(f, sheet, first+1, 2, ColumnScore); err != nil {
				return err
			}
		}

		for r := range col.Responses {
			if err := setCell(f, sheet, first, r+3, col.Responses[r]); err != nil {
				return err
			}
			if scored {
				if err := setCell(f, sheet, first+1, r+3, col.Scores[r]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// SheetNames maps domain names to valid, unique Excel sheet names: no
// []:*?/\ characters, at most 31 runes, never empty, unique ignoring case.
func SheetNames(domains []string) []string {
	used := make(map[string]bool, len(domains))
	out := make([]string, len(domains))
	for i, d := range domains {
		base := sanitizeSheetName(d)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = "Domain"
	}
	return truncateRunes(name, maxSheetName)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
