package wordfreq

import (
	"context"

	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/pkg/models"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentDomains bounds the goroutines FromResult starts.
const maxConcurrentDomains = 4

// FromResult counts words for every category of every domain, in result
// order. Domains are processed concurrently.
func FromResult(ctx context.Context, res *models.Result) (Doc, error) {
	entries := make([][]Entry, len(res.Domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDomains)
	for i := range res.Domains {
		d := &res.Domains[i]
		g.Go(func() error {
			out := make([]Entry, 0, len(d.Categories))
			for j := range d.Categories {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := &d.Categories[j]
				if c.Name == models.StatisticsEntry {
					continue
				}
				out = append(out, Entry{Label: c.Name, Words: Count(c.Texts())})
			}
			entries[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := make(Doc, len(res.Domains))
	for i, d := range res.Domains {
		doc[d.Name] = entries[i]
	}
	return doc, nil
}

// FromTable groups row descriptions by the grouping key of each row's first
// label, corrected if present, and counts each group. Rows with no label are
// skipped. Groups keep first-seen order under the single TableDomain.
func FromTable(rows []models.TableRow) Doc {
	var order []string
	texts := map[string][]string{}
	for i := range rows {
		labels := rows[i].Labels()
		if len(labels) == 0 {
			continue
		}
		key := reshape.CategoryKey(labels[0])
		if _, ok := texts[key]; !ok {
			order = append(order, key)
		}
		texts[key] = append(texts[key], rows[i].ProblemDescription)
	}

	entries := make([]Entry, 0, len(order))
	for _, key := range order {
		entries = append(entries, Entry{Label: key, Words: Count(texts[key])})
	}
	return Doc{TableDomain: entries}
}
