// Package models contains shared data models used across the venter codebase.
package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ModelVariant selects which classifier an artifact is run through.
type ModelVariant string

const (
	VariantSentence ModelVariant = "sentence_model"
	VariantKeyword  ModelVariant = "keyword_model"
	VariantCategory ModelVariant = "category_model"
)

// Valid reports whether v is one of the known variants.
func (v ModelVariant) Valid() bool {
	switch v {
	case VariantSentence, VariantKeyword, VariantCategory:
		return true
	}
	return false
}

// Scored reports whether results of this variant carry confidence scores.
func (v ModelVariant) Scored() bool {
	return v != VariantKeyword
}

// Tabular reports whether the variant produces the flat per-row shape
// instead of the nested domain/category shape.
func (v ModelVariant) Tabular() bool {
	return v == VariantCategory
}

const (
	PredictionPending  = "pending"
	PredictionComputed = "computed"
	PredictionFailed   = "failed"
)

// Artifact is an uploaded input file and the bookkeeping for its derived outputs.
type Artifact struct {
	ID               uuid.UUID    `db:"id"                json:"id"`
	OrganisationID   uuid.UUID    `db:"organisation_id"   json:"organisation_id"`
	Organisation     string       `db:"organisation"      json:"organisation"`
	Owner            string       `db:"owner"             json:"owner"`
	Filename         string       `db:"filename"          json:"filename"`
	UploadedAt       time.Time    `db:"uploaded_at"       json:"uploaded_at"`
	Variant          ModelVariant `db:"model_variant"     json:"model_variant"`
	Proposal         *string      `db:"proposal"          json:"proposal,omitempty"`
	DomainPresent    bool         `db:"domain_present"    json:"domain_present"`
	State            string       `db:"prediction_state"  json:"prediction_state"`
	FailureReason    *string      `db:"failure_reason"    json:"failure_reason,omitempty"`
	OutputJSON       *string      `db:"output_json"       json:"output_json,omitempty"`
	OutputExport     *string      `db:"output_export"     json:"output_export,omitempty"`
	WordcloudData    *string      `db:"wordcloud_data"    json:"wordcloud_data,omitempty"`
	CorrectionsSaved bool         `db:"corrections_saved" json:"corrections_saved"`
	CreatedAt        time.Time    `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"        json:"updated_at"`
}

// HasPrediction is true once a raw classification result has been durably persisted.
func (a *Artifact) HasPrediction() bool {
	return a.State == PredictionComputed
}

// BaseName is the upload's filename without its extension. Derived file
// names are built from it.
func (a *Artifact) BaseName() string {
	return strings.TrimSuffix(a.Filename, filepath.Ext(a.Filename))
}

// UploadDate is the calendar date used in the on-disk layout.
func (a *Artifact) UploadDate() string {
	return a.UploadedAt.UTC().Format("2006-01-02")
}
