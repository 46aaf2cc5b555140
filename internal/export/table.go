package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/pkg/models"
)

// PredictedColumn is the leading column added to the flat export.
const PredictedColumn = "Predicted_Category"

var (
	ErrRowCount          = errors.New("category list count does not match table rows")
	ErrNoPredictedColumn = errors.New("table has no " + PredictedColumn + " column")
)

// WriteTable copies the input CSV to outPath with a leading
// Predicted_Category column holding each row's top prediction. rows must be
// in input order.
func WriteTable(inputPath, outPath string, rows []models.TableRow) error {
	labels := make([][]string, len(rows))
	for i := range rows {
		labels[i] = rows[i].PredictedLabels()
	}
	sheet, err := artifact.ReadSheet(inputPath)
	if err != nil {
		return err
	}
	return writeWithCategories(outPath, sheet, labels)
}

// ApplyCorrections replaces the Predicted_Category column of the table at
// path with the given lists, one per data row in file order. Labels are
// trimmed. An existing column is removed first so it is never duplicated.
func ApplyCorrections(path string, corrections [][]string) error {
	sheet, err := artifact.ReadSheet(path)
	if err != nil {
		return err
	}
	trimmed := make([][]string, len(corrections))
	for i, labels := range corrections {
		trimmed[i] = make([]string, len(labels))
		for j, l := range labels {
			trimmed[i][j] = strings.TrimSpace(l)
		}
	}
	return writeWithCategories(path, sheet, trimmed)
}

// ReadPredictedCategories decodes the Predicted_Category column of a table
// written by WriteTable or ApplyCorrections.
func ReadPredictedCategories(path string) ([][]string, error) {
	sheet, err := artifact.ReadSheet(path)
	if err != nil {
		return nil, err
	}
	col := sheet.Column(PredictedColumn)
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPredictedColumn, path)
	}
	out := make([][]string, len(sheet.Records))
	for i, rec := range sheet.Records {
		labels, err := DecodeList(sheet.Value(rec, col))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[i] = labels
	}
	return out, nil
}

func writeWithCategories(path string, sheet *artifact.Sheet, categories [][]string) error {
	if len(categories) != len(sheet.Records) {
		return fmt.Errorf("%w: %d lists for %d rows", ErrRowCount, len(categories), len(sheet.Records))
	}

	drop := sheet.Column(PredictedColumn)
	header := append([]string{PredictedColumn}, without(sheet.Header, drop)...)
	records := make([][]string, len(sheet.Records))
	for i, rec := range sheet.Records {
		records[i] = append([]string{EncodeList(categories[i])}, without(rec, drop)...)
	}
	return artifact.WriteCSV(path, header, records)
}

func without(row []string, i int) []string {
	if i < 0 || i >= len(row) {
		return row
	}
	out := make([]string, 0, len(row)-1)
	out = append(out, row[:i]...)
	return append(out, row[i+1:]...)
}
