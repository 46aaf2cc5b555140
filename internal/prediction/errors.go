package prediction

import "errors"

var (
	// ErrMissingArtifact is returned when the artifact id is unknown.
	ErrMissingArtifact = errors.New("artifact not found")
	// ErrClassifierFailure wraps any error returned by the classifier.
	ErrClassifierFailure = errors.New("classifier failed")
	// ErrCorruptCache means the artifact is marked computed but its cached
	// result is missing or unreadable. It is never recomputed silently.
	ErrCorruptCache = errors.New("cached prediction missing or unreadable")
	// ErrExportIO means the classification result could not be persisted.
	ErrExportIO = errors.New("writing prediction output failed")
	// ErrWrongShape is returned when a nested result is requested for a flat
	// variant or the other way round.
	ErrWrongShape = errors.New("artifact variant does not produce this result shape")
	// ErrMissingColumn is returned when the flat input lacks the description column.
	ErrMissingColumn = errors.New("input is missing a required column")
)
