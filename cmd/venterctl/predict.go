package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/spf13/cobra"
)

const operatorName = "venterctl"

func newPredictCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict <artifact-id>",
		Short: "Classify an artifact, or read its cached prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			art, err := a.predict.Artifact(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if art.Variant.Tabular() {
				rows, err := a.predict.Table(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, rows)
				}
				return renderTableRows(out, rows)
			}

			res, err := a.predict.Result(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, res)
			}
			return renderStats(out, reshape.Statistics(res, art.Variant))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	return cmd
}

func newStatsCommand() *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "stats <artifact-id>",
		Short: "Print the per-domain category statistics of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			actor, err := operatorActor(cmd.Context(), a, id)
			if err != nil {
				return err
			}
			stats, err := a.views.Statistics(cmd.Context(), actor, id, domain)
			if err != nil {
				return err
			}
			return renderStats(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "only this domain")
	return cmd
}

func newWordCloudCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wordcloud <artifact-id> <domain> <category>",
		Short: "Print the word counts behind a category's word cloud",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			actor, err := operatorActor(cmd.Context(), a, id)
			if err != nil {
				return err
			}
			words, err := a.views.WordCloud(cmd.Context(), actor, id, args[1], args[2])
			if err != nil {
				return err
			}
			return renderWords(cmd.OutOrStdout(), words)
		},
	}
}

func parseArtifactID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("artifact id %q: %w", s, err)
	}
	return id, nil
}

// operatorActor acts as staff of the artifact's organisation.
func operatorActor(ctx context.Context, a *app, id uuid.UUID) (models.Actor, error) {
	art, err := a.predict.Artifact(ctx, id)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{
		OrganisationID: art.OrganisationID,
		Organisation:   art.Organisation,
		Username:       operatorName,
		Staff:          true,
	}, nil
}

// --- output ---

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderStats(w io.Writer, stats []reshape.DomainStats) error {
	for _, s := range stats {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.SetTitle(s.Domain)
		for i, row := range s.Rows {
			if i == 0 {
				t.AppendHeader(tableRow(row))
				continue
			}
			t.AppendRow(tableRow(row))
		}
		t.Render()
	}
	return nil
}

// tableRow drops the trailing style column.
func tableRow(cells []reshape.Cell) table.Row {
	if n := len(cells); n > 0 {
		cells = cells[:n-1]
	}
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func renderTableRows(w io.Writer, rows []models.TableRow) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Category", "Confidence", "Ward", "Date", "Description"})
	for _, r := range rows {
		category := ""
		if labels := r.Labels(); len(labels) > 0 {
			category = labels[0]
		}
		t.AppendRow(table.Row{r.Index, category, fmt.Sprintf("%.2f", r.HighestConfidence), r.WardName, r.DateCreated, r.ProblemDescription})
	}
	t.Render()
	return nil
}

func renderWords(w io.Writer, words []wordfreq.WordCount) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Word", "Count"})
	for _, wc := range words {
		t.AppendRow(table.Row{wc.Word, wc.Count})
	}
	t.Render()
	return nil
}
