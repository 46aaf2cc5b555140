package keyword_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/venter/internal/classifier/keyword"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func waterDomain() models.DomainKeywords {
	return models.DomainKeywords{Domain: "Water", Keywords: []string{"tanker", "leak", "meter"}}
}

func TestClassify_AssignsByKeywordInConfiguredOrder(t *testing.T) {
	input := writeInput(t, "responses.csv",
		"response\nThe water TANKER never came\nPipe leak near school\nNothing to report\nLeak and tanker both\n")

	c := keyword.New()
	res, err := c.Classify(context.Background(), models.ClassifyRequest{
		InputPath: input,
		Variant:   models.VariantKeyword,
		Domains:   []models.DomainKeywords{waterDomain()},
	})
	require.NoError(t, err)
	require.Len(t, res.Domains, 1)

	d := res.Domains[0]
	assert.Equal(t, "Water", d.Name)
	require.Len(t, d.Categories, 4)
	assert.Equal(t, "tanker", d.Categories[0].Name)
	assert.Equal(t, []string{"The water TANKER never came", "Leak and tanker both"}, d.Categories[0].Texts())
	assert.Equal(t, []string{"Pipe leak near school", "Leak and tanker both"}, d.Categories[1].Texts())
	assert.Equal(t, 0, d.Categories[2].Count(), "unmatched keyword still present as empty category")
	for _, r := range d.Categories[0].Responses {
		assert.Equal(t, models.NoScore, r.Score)
	}

	novel, ok := d.Novel()
	require.True(t, ok)
	assert.Equal(t, []models.SubCategory{{Name: keyword.UnmatchedSubCategory, Texts: []string{"Nothing to report"}}}, novel.Novel)
}

func TestClassify_MatchesWholeWordsOnly(t *testing.T) {
	input := writeInput(t, "responses.csv", "text\nwater tank overflowing\n")

	res, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath: input,
		Domains:   []models.DomainKeywords{waterDomain()},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Domains[0].Categories[0].Count())
}

func TestClassify_AccentsFolded(t *testing.T) {
	input := writeInput(t, "responses.csv", "response\nle café est fermé\n")

	res, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath: input,
		Domains:   []models.DomainKeywords{{Domain: "Shops", Keywords: []string{"Cafe"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Domains[0].Categories[0].Count())
}

func TestClassify_DomainPresentRestrictsRows(t *testing.T) {
	input := writeInput(t, "responses.csv",
		"Domain,Response\nWater,tanker late\nRoads,tanker blocking road\n")

	res, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath:     input,
		DomainPresent: true,
		Domains: []models.DomainKeywords{
			waterDomain(),
			{Domain: "Roads", Keywords: []string{"pothole"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Domains, 2)
	assert.Equal(t, []string{"tanker late"}, res.Domains[0].Categories[0].Texts())

	roadsNovel, ok := res.Domains[1].Novel()
	require.True(t, ok)
	assert.Equal(t, []string{"tanker blocking road"}, roadsNovel.Texts())
}

func TestClassify_ReadsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "response"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "meter broken"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath: path,
		Domains:   []models.DomainKeywords{waterDomain()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"meter broken"}, res.Domains[0].Categories[2].Texts())
}

func TestClassify_StagesIntoScratchDir(t *testing.T) {
	input := writeInput(t, "responses.csv", "response\nleak\n")
	scratch := t.TempDir()

	_, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath:  input,
		ScratchDir: scratch,
		Domains:    []models.DomainKeywords{waterDomain()},
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(scratch, "responses.csv"))
}

func TestClassify_NoKeywords(t *testing.T) {
	_, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{InputPath: "x.csv"})
	assert.ErrorIs(t, err, keyword.ErrNoKeywords)
}

func TestClassify_MissingInput(t *testing.T) {
	_, err := keyword.New().Classify(context.Background(), models.ClassifyRequest{
		InputPath: filepath.Join(t.TempDir(), "missing.csv"),
		Domains:   []models.DomainKeywords{waterDomain()},
	})
	assert.Error(t, err)
}

func TestClassify_CancelledContext(t *testing.T) {
	input := writeInput(t, "responses.csv", "response\nleak\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := keyword.New().Classify(ctx, models.ClassifyRequest{
		InputPath: input,
		Domains:   []models.DomainKeywords{waterDomain()},
	})
	assert.ErrorIs(t, err, models.ErrInferenceTimeout)
}

func TestTopCategories_Unsupported(t *testing.T) {
	_, err := keyword.New().TopCategories(context.Background(), []string{"x"}, 3)
	assert.ErrorIs(t, err, models.ErrClassifierUnavailable)
}

func TestName(t *testing.T) {
	assert.Equal(t, "keyword", keyword.New().Name())
}
