package models

import (
	"time"

	"github.com/google/uuid"
)

// Organisation owns artifacts, domains and category lists.
type Organisation struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DomainKeywords is the keyword list configured for one domain of a proposal.
// It feeds the keyword classifier.
type DomainKeywords struct {
	Domain   string   `json:"domain"`
	Keywords []string `json:"keywords"`
}

// Actor is the authenticated caller on whose behalf views are resolved.
type Actor struct {
	OrganisationID uuid.UUID `json:"organisation_id"`
	Organisation   string    `json:"organisation"`
	Username       string    `json:"username"`
	Staff          bool      `json:"staff"`
}
