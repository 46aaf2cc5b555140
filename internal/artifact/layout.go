// Package artifact owns the on-disk layout of uploaded inputs and every
// file derived from them.
package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/venter/pkg/models"
)

const (
	inputDir     = "input"
	outputDir    = "output"
	wordcloudDir = "wordcloud"

	resultsPrefix   = "results__"
	wordcloudPrefix = "wordcloud__"
)

// ErrUnsafePath is returned for an artifact whose organisation, owner or
// filename would resolve outside its upload directory.
var ErrUnsafePath = errors.New("unsafe artifact path component")

// Layout resolves deterministic paths under a media root:
//
//	{root}/{org}/{user}/{date}/input/{filename}
//	{root}/{org}/{user}/{date}/output/results__{base}.{json,xlsx,csv}
//	{root}/{org}/{user}/{date}/wordcloud/wordcloud__{base}.json
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// Check rejects artifacts whose path components are empty, dot segments or
// contain a separator. Paths of an artifact that fails Check must not be used.
func (l Layout) Check(a *models.Artifact) error {
	for _, c := range [...]struct{ field, value string }{
		{"organisation", a.Organisation},
		{"owner", a.Owner},
		{"filename", a.Filename},
	} {
		if !safeComponent(c.value) {
			return fmt.Errorf("%w: %s %q", ErrUnsafePath, c.field, c.value)
		}
	}
	return nil
}

func safeComponent(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// Dir is the per-upload working directory.
func (l Layout) Dir(a *models.Artifact) string {
	return filepath.Join(l.Root, a.Organisation, a.Owner, a.UploadDate())
}

func (l Layout) InputPath(a *models.Artifact) string {
	return filepath.Join(l.Dir(a), inputDir, a.Filename)
}

func (l Layout) OutputDir(a *models.Artifact) string {
	return filepath.Join(l.Dir(a), outputDir)
}

func (l Layout) WordcloudDir(a *models.Artifact) string {
	return filepath.Join(l.Dir(a), wordcloudDir)
}

// ResultJSON is the classification cache file.
func (l Layout) ResultJSON(a *models.Artifact) string {
	return l.result(a, "json")
}

// ResultXLSX is the nested-shape workbook export.
func (l Layout) ResultXLSX(a *models.Artifact) string {
	return l.result(a, "xlsx")
}

// ResultCSV is the flat-shape table export.
func (l Layout) ResultCSV(a *models.Artifact) string {
	return l.result(a, "csv")
}

// ExportPath picks the export file matching the artifact's result shape.
func (l Layout) ExportPath(a *models.Artifact) string {
	if a.Variant.Tabular() {
		return l.ResultCSV(a)
	}
	return l.ResultXLSX(a)
}

// WordcloudJSON is the word-frequency cache file.
func (l Layout) WordcloudJSON(a *models.Artifact) string {
	return filepath.Join(l.WordcloudDir(a), fmt.Sprintf("%s%s.json", wordcloudPrefix, a.BaseName()))
}

func (l Layout) result(a *models.Artifact, ext string) string {
	return filepath.Join(l.OutputDir(a), fmt.Sprintf("%s%s.%s", resultsPrefix, a.BaseName(), ext))
}
