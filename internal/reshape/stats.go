// Package reshape derives chart and table views from a classification
// result. Everything here is a pure function of its inputs.
package reshape

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kiranshivaraju/venter/pkg/models"
)

// Cell is one value of a statistics row or export grid: a string, an int,
// a float64 or a Style marker.
type Cell any

// Style is the chart column-role annotation closing every header row.
type Style struct {
	Role string `json:"role"`
}

// StyleMarker is the {"role":"style"} cell.
var StyleMarker = Style{Role: "style"}

const (
	HeaderCategory  = "Category"
	HeaderResponses = "No. of Responses"
)

// DomainStats is the chart-ready statistics of one domain. Rows[0] is the
// header; every row has the header's width.
type DomainStats struct {
	Domain string   `json:"domain"`
	Rows   [][]Cell `json:"rows"`
}

// Header returns the header row.
func (s DomainStats) Header() []Cell {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Policy controls which categories produce a row.
type Policy struct {
	// SkipEmpty drops categories without any response.
	SkipEmpty bool
}

// PolicyFor returns the charting policy of a model variant. Sparse keyword
// categories are dropped; an empty similarity category still means "no
// match found" and is kept.
func PolicyFor(variant models.ModelVariant) Policy {
	return Policy{SkipEmpty: variant == models.VariantKeyword}
}

// Statistics builds the rows for every domain using the variant's policy.
func Statistics(res *models.Result, variant models.ModelVariant) []DomainStats {
	return StatisticsWith(res, variant, PolicyFor(variant))
}

// ChartStatistics builds the rows shown by the chart editor, which keeps
// every category regardless of variant.
func ChartStatistics(res *models.Result, variant models.ModelVariant) []DomainStats {
	return StatisticsWith(res, variant, Policy{})
}

func StatisticsWith(res *models.Result, variant models.ModelVariant, policy Policy) []DomainStats {
	out := make([]DomainStats, 0, len(res.Domains))
	for i := range res.Domains {
		out = append(out, DomainStatistics(&res.Domains[i], variant, policy))
	}
	return out
}

// DomainStatistics builds the statistics of a single domain. A category row
// that cannot be made to fit the header is logged and left out.
func DomainStatistics(d *models.Domain, variant models.ModelVariant, policy Policy) DomainStats {
	header := statsHeader(d, variant)
	stats := DomainStats{Domain: d.Name, Rows: [][]Cell{header}}
	subColumns := len(header) - 2

	for i := range d.Categories {
		c := &d.Categories[i]
		if policy.SkipEmpty && c.Count() == 0 {
			continue
		}
		row, err := categoryRow(c, len(header), subColumns, subCategoryColumns(header))
		if err != nil {
			slog.Warn("skipping statistics row",
				"domain", d.Name, "category", c.Name, "error", err)
			continue
		}
		stats.Rows = append(stats.Rows, row)
	}
	return stats
}

// Label is the display label of a category: the first line of its name.
func Label(name string) string {
	label, _, _ := strings.Cut(name, "\n")
	return label
}

func statsHeader(d *models.Domain, variant models.ModelVariant) []Cell {
	header := []Cell{HeaderCategory}
	novel, ok := d.Novel()
	if variant.Scored() && ok && len(novel.Novel) > 0 {
		for i := range novel.Novel {
			header = append(header, fmt.Sprintf("Sub category %d", i+1))
		}
	} else {
		header = append(header, HeaderResponses)
	}
	return append(header, StyleMarker)
}

func subCategoryColumns(header []Cell) bool {
	return len(header) > 1 && header[1] != HeaderResponses
}

func categoryRow(c *models.Category, width, subColumns int, bySubCategory bool) ([]Cell, error) {
	if c.IsNovel() {
		if !bySubCategory {
			return []Cell{Label(c.Name), c.Count(), ""}, nil
		}
		if len(c.Novel) != subColumns {
			return nil, fmt.Errorf("%d sub-categories for %d columns", len(c.Novel), subColumns)
		}
		row := []Cell{Label(c.Name)}
		for _, sc := range c.Novel {
			row = append(row, len(sc.Texts))
		}
		return append(row, ""), nil
	}

	row := []Cell{Label(c.Name), c.Count(), ""}
	for len(row) < width {
		row = slices.Insert(row, 2, Cell(0))
	}
	if len(row) != width {
		return nil, fmt.Errorf("row width %d exceeds header width %d", len(row), width)
	}
	return row, nil
}
