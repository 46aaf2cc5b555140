package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/venter/pkg/models"
)

// MockClassifier satisfies models.Classifier for testing.
type MockClassifier struct {
	Name_             string
	ClassifyFunc      func(ctx context.Context, req models.ClassifyRequest) (*models.Result, error)
	TopCategoriesFunc func(ctx context.Context, texts []string, k int) ([]models.RankedCategories, error)

	classifyCalls atomic.Int64
	topCalls      atomic.Int64
}

func (m *MockClassifier) Name() string { return m.Name_ }

func (m *MockClassifier) Classify(ctx context.Context, req models.ClassifyRequest) (*models.Result, error) {
	m.classifyCalls.Add(1)
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return &models.Result{}, nil
}

func (m *MockClassifier) TopCategories(ctx context.Context, texts []string, k int) ([]models.RankedCategories, error) {
	m.topCalls.Add(1)
	if m.TopCategoriesFunc != nil {
		return m.TopCategoriesFunc(ctx, texts, k)
	}
	return make([]models.RankedCategories, len(texts)), nil
}

// ClassifyCalls reports how many times Classify ran.
func (m *MockClassifier) ClassifyCalls() int { return int(m.classifyCalls.Load()) }

// TopCategoriesCalls reports how many times TopCategories ran.
func (m *MockClassifier) TopCategoriesCalls() int { return int(m.topCalls.Load()) }

// NewMockClassifier returns a MockClassifier with deterministic responses:
// one domain per configured keyword domain (or a single "General" domain)
// and fixed top-k rankings.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, req models.ClassifyRequest) (*models.Result, error) {
			return SampleResult(req), nil
		},
		TopCategoriesFunc: func(_ context.Context, texts []string, k int) ([]models.RankedCategories, error) {
			out := make([]models.RankedCategories, len(texts))
			for i := range texts {
				out[i] = SampleRanking(k)
			}
			return out, nil
		},
	}
}

// SampleResult builds the fixed result NewMockClassifier returns.
func SampleResult(req models.ClassifyRequest) *models.Result {
	score := 0.85
	if !req.Variant.Scored() {
		score = models.NoScore
	}
	domains := req.Domains
	if len(domains) == 0 {
		domains = []models.DomainKeywords{{Domain: "General", Keywords: []string{"Garbage", "Roads"}}}
	}

	res := &models.Result{}
	for _, dk := range domains {
		d := models.Domain{Name: dk.Domain}
		for _, kw := range dk.Keywords {
			d.Categories = append(d.Categories, models.Category{
				Name:      kw,
				Responses: []models.Response{{Text: "mock response about " + kw, Score: score}},
			})
		}
		d.Categories = append(d.Categories, models.Category{
			Name:  models.NovelCategory,
			Novel: []models.SubCategory{{Name: "Other", Texts: []string{"mock unclassified response"}}},
		})
		res.Domains = append(res.Domains, d)
	}
	return res
}

// SampleRanking is the fixed top-k ranking used by NewMockClassifier.
func SampleRanking(k int) models.RankedCategories {
	all := models.RankedCategories{
		{Category: "Garbage", Probability: 0.6},
		{Category: "Roads", Probability: 0.3},
		{Category: "Water", Probability: 0.1},
	}
	if k < len(all) {
		return all[:k]
	}
	return all
}

// NewFailingClassifier returns a MockClassifier that always returns the given error.
func NewFailingClassifier(err error) *MockClassifier {
	return &MockClassifier{
		Name_: "mock-failing",
		ClassifyFunc: func(_ context.Context, _ models.ClassifyRequest) (*models.Result, error) {
			return nil, err
		},
		TopCategoriesFunc: func(_ context.Context, _ []string, _ int) ([]models.RankedCategories, error) {
			return nil, err
		},
	}
}

// NewTimeoutClassifier returns a MockClassifier that blocks until context is cancelled.
func NewTimeoutClassifier() *MockClassifier {
	return &MockClassifier{
		Name_: "mock-timeout",
		ClassifyFunc: func(ctx context.Context, _ models.ClassifyRequest) (*models.Result, error) {
			<-ctx.Done()
			return nil, models.ErrInferenceTimeout
		},
		TopCategoriesFunc: func(ctx context.Context, _ []string, _ int) ([]models.RankedCategories, error) {
			<-ctx.Done()
			return nil, models.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockClassifier implements Classifier.
var _ models.Classifier = (*MockClassifier)(nil)
