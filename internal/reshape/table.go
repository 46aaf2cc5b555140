package reshape

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiranshivaraju/venter/pkg/models"
)

// InputRow is the part of an uploaded complaint record the flat view keeps.
type InputRow struct {
	Description string
	Ward        string
	Created     string
}

// Flatten pairs every input row with its top-k prediction. Rows keep input
// order; use SortByConfidence for display order.
func Flatten(rows []InputRow, predictions []models.RankedCategories) ([]models.TableRow, error) {
	if len(rows) != len(predictions) {
		return nil, fmt.Errorf("%d predictions for %d rows", len(predictions), len(rows))
	}

	out := make([]models.TableRow, len(rows))
	for i, r := range rows {
		out[i] = models.TableRow{
			Index:              i,
			ProblemDescription: r.Description,
			Category:           predictions[i],
			WardName:           r.Ward,
			DateCreated:        DateOnly(r.Created),
		}
		if top, ok := predictions[i].Top(); ok {
			out[i].HighestConfidence = top.Probability
		}
	}
	return out, nil
}

// SortByConfidence returns a copy of rows ordered by highest confidence,
// descending. Equal confidences keep their relative order.
func SortByConfidence(rows []models.TableRow) []models.TableRow {
	out := make([]models.TableRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HighestConfidence > out[j].HighestConfidence
	})
	return out
}

// DateOnly returns the date part of a "date time" timestamp: everything
// before the first space.
func DateOnly(timestamp string) string {
	date, _, _ := strings.Cut(timestamp, " ")
	return date
}

// CategoryKey is the grouping key of a label such as "Garbage (household)":
// the text before the first "(", trimmed.
func CategoryKey(label string) string {
	key, _, _ := strings.Cut(label, "(")
	return strings.TrimSpace(key)
}

// Wards returns the distinct ward names of rows, sorted.
func Wards(rows []models.TableRow) []string {
	return distinct(rows, func(r *models.TableRow) string { return r.WardName })
}

// Dates returns the distinct creation dates of rows, sorted.
func Dates(rows []models.TableRow) []string {
	return distinct(rows, func(r *models.TableRow) string { return r.DateCreated })
}

func distinct(rows []models.TableRow, field func(*models.TableRow) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for i := range rows {
		v := field(&rows[i])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
