// Package classifier builds the configured models.Classifier.
package classifier

import (
	"fmt"

	"github.com/kiranshivaraju/venter/internal/classifier/keyword"
	"github.com/kiranshivaraju/venter/internal/classifier/mock"
	"github.com/kiranshivaraju/venter/internal/classifier/remote"
	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/pkg/models"
)

// NewClassifier constructs the classifier named by cfg.Provider.
// Called once at startup.
//
// "routed" runs the keyword model in-process and sends the sentence and
// category models to the remote sidecar when CLASSIFIER_BASE_URL is set.
func NewClassifier(cfg config.ClassifierConfig) (models.Classifier, error) {
	switch cfg.Provider {
	case "routed":
		routes := map[models.ModelVariant]models.Classifier{
			models.VariantKeyword: keyword.New(),
		}
		if cfg.BaseURL != "" {
			rc := remote.NewClient(cfg.BaseURL, cfg.Timeout)
			routes[models.VariantSentence] = rc
			routes[models.VariantCategory] = rc
		}
		return NewRouter(routes), nil
	case "keyword":
		return keyword.New(), nil
	case "remote":
		return remote.NewClient(cfg.BaseURL, cfg.Timeout), nil
	case "mock":
		return mock.NewMockClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q: must be one of routed, keyword, remote, mock", cfg.Provider)
	}
}
