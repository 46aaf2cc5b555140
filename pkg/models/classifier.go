package models

import (
	"context"
	"errors"
)

var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrInferenceTimeout      = errors.New("classifier inference timeout")
	ErrInvalidResponse       = errors.New("classifier returned invalid response")
)

// Classifier is the black-box model collaborator. Never call a concrete
// classifier directly; always inject this interface.
type Classifier interface {
	// Classify runs the nested-shape models over an input file.
	Classify(ctx context.Context, req ClassifyRequest) (*Result, error)
	// TopCategories ranks the k most likely categories for each text.
	TopCategories(ctx context.Context, texts []string, k int) ([]RankedCategories, error)
	// Name returns the classifier identifier (e.g. "keyword", "remote").
	Name() string
}

// ClassifyRequest is the input to a nested-shape classification.
type ClassifyRequest struct {
	InputPath     string
	Variant       ModelVariant
	DomainPresent bool
	Domains       []DomainKeywords // empty for the similarity model
	// ScratchDir is a per-request working directory the classifier may
	// fill; the caller clears it once the result is persisted.
	ScratchDir string
}
