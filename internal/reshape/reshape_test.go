package reshape_test

import (
	"encoding/json"
	"testing"

	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResult(t *testing.T, raw string) *models.Result {
	t.Helper()
	var res models.Result
	require.NoError(t, json.Unmarshal([]byte(raw), &res))
	return &res
}

func assertRectangular(t *testing.T, s reshape.DomainStats) {
	t.Helper()
	width := len(s.Header())
	for i, row := range s.Rows {
		assert.Len(t, row, width, "row %d of %s", i, s.Domain)
	}
}

// --- Statistics ---

func TestStatistics_EndToEndExample(t *testing.T) {
	res := decodeResult(t, `{"DomainA": {"CatX": [{"text":"a","score":0.7}], "CatY": [{"text":"b","score":0.3}]}}`)

	stats := reshape.Statistics(res, models.VariantSentence)
	require.Len(t, stats, 1)
	assert.Equal(t, "DomainA", stats[0].Domain)
	assert.Equal(t, [][]reshape.Cell{
		{"Category", "No. of Responses", reshape.StyleMarker},
		{"CatX", 1, ""},
		{"CatY", 1, ""},
	}, stats[0].Rows)

	b, err := json.Marshal(stats[0].Rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[["Category","No. of Responses",{"role":"style"}],["CatX",1,""],["CatY",1,""]]`, string(b))
}

func TestStatistics_SimilarityWithNovelBucket(t *testing.T) {
	res := decodeResult(t, `{"Water": {
		"Supply\nirregular timings": [{"text":"a","score":0.9},{"text":"b","score":0.8}],
		"Quality": [],
		"Novel": {"Smell": ["x","y"], "Colour": ["z"], "Other": []}
	}}`)

	stats := reshape.Statistics(res, models.VariantSentence)
	require.Len(t, stats, 1)
	assert.Equal(t, [][]reshape.Cell{
		{"Category", "Sub category 1", "Sub category 2", "Sub category 3", reshape.StyleMarker},
		{"Supply", 2, 0, 0, ""},
		{"Quality", 0, 0, 0, ""},
		{"Novel", 2, 1, 0, ""},
	}, stats[0].Rows)
	assertRectangular(t, stats[0])
}

func TestStatistics_BucketRowUsesBucketName(t *testing.T) {
	res := decodeResult(t, `{"Water": {
		"Supply": [{"text":"a","score":0.9}],
		"Unclassified\nno close match": {"Smell": ["x"], "Other": ["y","z"]}
	}}`)

	for _, variant := range []models.ModelVariant{models.VariantSentence, models.VariantKeyword} {
		stats := reshape.Statistics(res, variant)
		require.Len(t, stats, 1)
		last := stats[0].Rows[len(stats[0].Rows)-1]
		assert.Equal(t, "Unclassified", last[0], variant)
		assertRectangular(t, stats[0])
	}
}

func TestStatistics_KeywordSkipsEmptyCategories(t *testing.T) {
	res := decodeResult(t, `{"Roads": {
		"pothole": [{"text":"deep pothole"}],
		"streetlight": [],
		"Novel": {"Unmatched": ["a","b"], "Other": ["c"]}
	}}`)

	stats := reshape.Statistics(res, models.VariantKeyword)
	assert.Equal(t, [][]reshape.Cell{
		{"Category", "No. of Responses", reshape.StyleMarker},
		{"pothole", 1, ""},
		{"Novel", 3, ""},
	}, stats[0].Rows)
	assertRectangular(t, stats[0])
}

func TestChartStatistics_KeepsEmptyKeywordCategories(t *testing.T) {
	res := decodeResult(t, `{"Roads": {"pothole": [{"text":"deep"}], "streetlight": []}}`)

	stats := reshape.ChartStatistics(res, models.VariantKeyword)
	assert.Equal(t, [][]reshape.Cell{
		{"Category", "No. of Responses", reshape.StyleMarker},
		{"pothole", 1, ""},
		{"streetlight", 0, ""},
	}, stats[0].Rows)
}

func TestStatistics_SimilarityNeverSkips(t *testing.T) {
	res := decodeResult(t, `{"Roads": {"pothole": [], "streetlight": []}}`)

	stats := reshape.Statistics(res, models.VariantSentence)
	assert.Len(t, stats[0].Rows, 3)
}

func TestStatistics_MultipleDomainsKeepOrder(t *testing.T) {
	res := decodeResult(t, `{"Zeta": {"a": []}, "Alpha": {"b": []}}`)

	stats := reshape.Statistics(res, models.VariantSentence)
	require.Len(t, stats, 2)
	assert.Equal(t, "Zeta", stats[0].Domain)
	assert.Equal(t, "Alpha", stats[1].Domain)
}

func TestStatistics_PaddingInvariant(t *testing.T) {
	res := decodeResult(t, `{
		"A": {"x": [{"text":"1"}], "Novel": {"s1": ["a"], "s2": [], "s3": ["b","c"], "s4": ["d"]}},
		"B": {"y": [], "z": [{"text":"2"},{"text":"3"}]},
		"C": {"Novel": {"only": ["q"]}}
	}`)

	for _, variant := range []models.ModelVariant{models.VariantSentence, models.VariantKeyword} {
		for _, s := range reshape.ChartStatistics(res, variant) {
			assertRectangular(t, s)
		}
	}
}

func TestDomainStatistics_EmptyDomain(t *testing.T) {
	d := &models.Domain{Name: "Empty"}
	s := reshape.DomainStatistics(d, models.VariantSentence, reshape.Policy{})
	assert.Equal(t, [][]reshape.Cell{{"Category", "No. of Responses", reshape.StyleMarker}}, s.Rows)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Garbage", reshape.Label("Garbage\nnot collected for days"))
	assert.Equal(t, "Roads", reshape.Label("Roads"))
}

// --- PadColumns ---

func TestPadColumns_Rectangular(t *testing.T) {
	cols := [][]reshape.Cell{{"a", "b", "c"}, {"d"}, {}}

	got := reshape.PadColumns(cols, "")
	assert.Equal(t, [][]reshape.Cell{{"a", "b", "c"}, {"d", "", ""}, {"", "", ""}}, got)
}

func TestPadColumns_DoesNotMutateInput(t *testing.T) {
	cols := [][]reshape.Cell{{1, 2}, {3}}
	_ = reshape.PadColumns(cols, 0)
	assert.Len(t, cols[1], 1)
}

func TestPadColumns_Empty(t *testing.T) {
	assert.Empty(t, reshape.PadColumns(nil, ""))
}

// --- Flatten / SortByConfidence ---

func ranked(cat string, p float64) models.RankedCategories {
	return models.RankedCategories{{Category: cat, Probability: p}, {Category: "Other", Probability: 1 - p}}
}

func TestFlatten(t *testing.T) {
	rows := []reshape.InputRow{
		{Description: "garbage pile", Ward: "Aundh", Created: "2019-02-11 10:32:00"},
		{Description: "no water", Ward: "Baner", Created: "2019-02-12"},
	}
	got, err := reshape.Flatten(rows, []models.RankedCategories{ranked("Garbage", 0.8), ranked("Water", 0.6)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "garbage pile", got[0].ProblemDescription)
	assert.Equal(t, 0.8, got[0].HighestConfidence)
	assert.Equal(t, "Aundh", got[0].WardName)
	assert.Equal(t, "2019-02-11", got[0].DateCreated)
	assert.Equal(t, "2019-02-12", got[1].DateCreated)
	assert.Equal(t, []string{"Water"}, got[1].Labels())
}

func TestFlatten_EmptyPrediction(t *testing.T) {
	got, err := reshape.Flatten([]reshape.InputRow{{Description: "x"}}, []models.RankedCategories{{}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0].HighestConfidence)
	assert.Equal(t, []string{}, got[0].Labels())
}

func TestFlatten_LengthMismatch(t *testing.T) {
	_, err := reshape.Flatten([]reshape.InputRow{{}, {}}, []models.RankedCategories{{}})
	assert.Error(t, err)
}

func TestSortByConfidence_Descending(t *testing.T) {
	rows := []models.TableRow{
		{Index: 0, HighestConfidence: 0.2},
		{Index: 1, HighestConfidence: 0.9},
		{Index: 2, HighestConfidence: 0.5},
	}

	got := reshape.SortByConfidence(rows)
	assert.Equal(t, []float64{0.9, 0.5, 0.2},
		[]float64{got[0].HighestConfidence, got[1].HighestConfidence, got[2].HighestConfidence})
	assert.Equal(t, 0, rows[0].Index, "input order untouched")
}

func TestSortByConfidence_Stable(t *testing.T) {
	rows := []models.TableRow{
		{Index: 0, HighestConfidence: 0.5},
		{Index: 1, HighestConfidence: 0.7},
		{Index: 2, HighestConfidence: 0.5},
		{Index: 3, HighestConfidence: 0.5},
	}

	got := reshape.SortByConfidence(rows)
	assert.Equal(t, []int{1, 0, 2, 3}, []int{got[0].Index, got[1].Index, got[2].Index, got[3].Index})
}

// --- Helpers ---

func TestDateOnly(t *testing.T) {
	assert.Equal(t, "2019-02-11", reshape.DateOnly("2019-02-11 10:32:00"))
	assert.Equal(t, "2019-02-11", reshape.DateOnly("2019-02-11"))
	assert.Equal(t, "", reshape.DateOnly(""))
}

func TestCategoryKey(t *testing.T) {
	assert.Equal(t, "Garbage", reshape.CategoryKey("Garbage (household)"))
	assert.Equal(t, "Garbage", reshape.CategoryKey("Garbage (market)"))
	assert.Equal(t, "Roads", reshape.CategoryKey("  Roads  "))
	assert.Equal(t, "", reshape.CategoryKey("(misc)"))
}

func TestWardsAndDates(t *testing.T) {
	rows := []models.TableRow{
		{WardName: "Baner", DateCreated: "2019-02-12"},
		{WardName: "Aundh", DateCreated: "2019-02-11"},
		{WardName: "Baner", DateCreated: "2019-02-11"},
		{WardName: "", DateCreated: ""},
	}
	assert.Equal(t, []string{"Aundh", "Baner"}, reshape.Wards(rows))
	assert.Equal(t, []string{"2019-02-11", "2019-02-12"}, reshape.Dates(rows))
}
