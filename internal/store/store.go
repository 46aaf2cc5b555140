package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid prediction state transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	CreateOrganisation(ctx context.Context, org *models.Organisation) error
	GetOrganisationByName(ctx context.Context, name string) (*models.Organisation, error)
	AddDomainKeywords(ctx context.Context, orgID uuid.UUID, proposal string, dk models.DomainKeywords) error
	ListDomainKeywords(ctx context.Context, orgID uuid.UUID, proposal string) ([]models.DomainKeywords, error)
	SetCategories(ctx context.Context, orgID uuid.UUID, categories []string) error
	ListCategories(ctx context.Context, orgID uuid.UUID) ([]string, error)

	CreateArtifact(ctx context.Context, a *models.Artifact) error
	GetArtifact(ctx context.Context, id uuid.UUID) (*models.Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*models.Artifact, int, error)
	UpdatePredictionState(ctx context.Context, id uuid.UUID, state string, opts ...ArtifactUpdateOption) error
	SetWordcloudData(ctx context.Context, id uuid.UUID, path string) error
	SetCorrectionsSaved(ctx context.Context, id uuid.UUID, exportPath string) error
}

// ArtifactFilter scopes an artifact listing. An empty Owner lists the whole
// organisation.
type ArtifactFilter struct {
	OrganisationID uuid.UUID
	Owner          string
	Page           int
	Limit          int
}

// ArtifactUpdate carries the optional columns of a prediction state change.
type ArtifactUpdate struct {
	OutputJSON    *string
	OutputExport  *string
	FailureReason *string
}

type ArtifactUpdateOption func(*ArtifactUpdate)

// ResolveUpdate applies opts to an empty ArtifactUpdate.
func ResolveUpdate(opts ...ArtifactUpdateOption) ArtifactUpdate {
	var u ArtifactUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func WithOutputJSON(path string) ArtifactUpdateOption {
	return func(p *ArtifactUpdate) {
		p.OutputJSON = &path
	}
}

func WithOutputExport(path string) ArtifactUpdateOption {
	return func(p *ArtifactUpdate) {
		p.OutputExport = &path
	}
}

func WithFailureReason(reason string) ArtifactUpdateOption {
	return func(p *ArtifactUpdate) {
		p.FailureReason = &reason
	}
}
