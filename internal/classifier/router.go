package classifier

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/venter/pkg/models"
)

// Router dispatches each request to the classifier registered for the
// artifact's model variant. Ranking always goes to the category model.
type Router struct {
	routes map[models.ModelVariant]models.Classifier
}

// NewRouter returns a Router over routes. Variants without an entry fail
// with models.ErrClassifierUnavailable.
func NewRouter(routes map[models.ModelVariant]models.Classifier) *Router {
	return &Router{routes: routes}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Classify(ctx context.Context, req models.ClassifyRequest) (*models.Result, error) {
	c, err := r.route(req.Variant)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, req)
}

func (r *Router) TopCategories(ctx context.Context, texts []string, k int) ([]models.RankedCategories, error) {
	c, err := r.route(models.VariantCategory)
	if err != nil {
		return nil, err
	}
	return c.TopCategories(ctx, texts, k)
}

// For returns the classifier registered for v.
func (r *Router) For(v models.ModelVariant) (models.Classifier, bool) {
	c, ok := r.routes[v]
	return c, ok
}

func (r *Router) route(v models.ModelVariant) (models.Classifier, error) {
	c, ok := r.routes[v]
	if !ok {
		return nil, fmt.Errorf("%w: no classifier configured for %s", models.ErrClassifierUnavailable, v)
	}
	return c, nil
}
