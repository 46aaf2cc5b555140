package classifier_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranshivaraju/venter/internal/classifier"
	"github.com/kiranshivaraju/venter/internal/classifier/mock"
	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassifier_Keyword(t *testing.T) {
	c, err := classifier.NewClassifier(config.ClassifierConfig{Provider: "keyword"})
	require.NoError(t, err)
	assert.Equal(t, "keyword", c.Name())
}

func TestNewClassifier_Remote(t *testing.T) {
	c, err := classifier.NewClassifier(config.ClassifierConfig{
		Provider: "remote",
		BaseURL:  "http://localhost:5000",
		Timeout:  30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote", c.Name())
}

func TestNewClassifier_Mock(t *testing.T) {
	c, err := classifier.NewClassifier(config.ClassifierConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())
}

func TestNewClassifier_Unknown(t *testing.T) {
	_, err := classifier.NewClassifier(config.ClassifierConfig{Provider: "bert"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown classifier provider")
	assert.Contains(t, err.Error(), "bert")
}

func TestNewClassifier_Empty(t *testing.T) {
	_, err := classifier.NewClassifier(config.ClassifierConfig{})
	require.Error(t, err)
}

func TestNewClassifier_RoutedDispatchesByVariant(t *testing.T) {
	c, err := classifier.NewClassifier(config.ClassifierConfig{
		Provider: "routed",
		BaseURL:  "http://localhost:5000",
		Timeout:  30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "router", c.Name())

	router, ok := c.(*classifier.Router)
	require.True(t, ok)
	for variant, want := range map[models.ModelVariant]string{
		models.VariantKeyword:  "keyword",
		models.VariantSentence: "remote",
		models.VariantCategory: "remote",
	} {
		got, ok := router.For(variant)
		require.True(t, ok, variant)
		assert.Equal(t, want, got.Name(), variant)
	}
}

func TestNewClassifier_RoutedWithoutBaseURLRunsKeywordOnly(t *testing.T) {
	c, err := classifier.NewClassifier(config.ClassifierConfig{Provider: "routed"})
	require.NoError(t, err)

	input := filepath.Join(t.TempDir(), "responses.csv")
	require.NoError(t, os.WriteFile(input, []byte("response\nwater tanker late\n"), 0o644))
	res, err := c.Classify(context.Background(), models.ClassifyRequest{
		InputPath: input,
		Variant:   models.VariantKeyword,
		Domains:   []models.DomainKeywords{{Domain: "Water", Keywords: []string{"tanker"}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Domains, 1)
	assert.Equal(t, 1, res.Domains[0].Categories[0].Count())

	_, err = c.Classify(context.Background(), models.ClassifyRequest{InputPath: input, Variant: models.VariantSentence})
	assert.ErrorIs(t, err, models.ErrClassifierUnavailable)

	_, err = c.TopCategories(context.Background(), []string{"water tanker late"}, 3)
	assert.ErrorIs(t, err, models.ErrClassifierUnavailable)
}

func TestRouter_SendsEachVariantToItsClassifier(t *testing.T) {
	kw := mock.NewMockClassifier()
	sim := mock.NewMockClassifier()
	r := classifier.NewRouter(map[models.ModelVariant]models.Classifier{
		models.VariantKeyword:  kw,
		models.VariantSentence: sim,
		models.VariantCategory: sim,
	})

	_, err := r.Classify(context.Background(), models.ClassifyRequest{Variant: models.VariantKeyword})
	require.NoError(t, err)
	_, err = r.Classify(context.Background(), models.ClassifyRequest{Variant: models.VariantSentence})
	require.NoError(t, err)
	ranked, err := r.TopCategories(context.Background(), []string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)

	assert.Equal(t, 1, kw.ClassifyCalls())
	assert.Equal(t, 0, kw.TopCategoriesCalls())
	assert.Equal(t, 1, sim.ClassifyCalls())
	assert.Equal(t, 1, sim.TopCategoriesCalls())
}

func TestRouter_UnknownVariant(t *testing.T) {
	r := classifier.NewRouter(map[models.ModelVariant]models.Classifier{})
	_, err := r.Classify(context.Background(), models.ClassifyRequest{Variant: models.ModelVariant("bert")})
	require.ErrorIs(t, err, models.ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "bert")
}
