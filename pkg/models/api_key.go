package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates an actor against the HTTP API.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganisationID uuid.UUID  `db:"organisation_id" json:"organisation_id"`
	Organisation   string     `db:"organisation"    json:"organisation"`
	Username       string     `db:"username"        json:"username"`
	Name           string     `db:"name"            json:"name"`
	KeyHash        string     `db:"key_hash"        json:"-"`
	KeyPrefix      string     `db:"key_prefix"      json:"key_prefix"`
	Scopes         []string   `db:"scopes"          json:"scopes"`
	LastUsedAt     *time.Time `db:"last_used_at"    json:"last_used_at,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at"      json:"-"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// ScopeStaff lets a key see every artifact of its organisation.
const ScopeStaff = "staff"

// Actor returns the identity this key acts as.
func (k *APIKey) Actor() Actor {
	staff := false
	for _, s := range k.Scopes {
		if s == ScopeStaff {
			staff = true
			break
		}
	}
	return Actor{
		OrganisationID: k.OrganisationID,
		Organisation:   k.Organisation,
		Username:       k.Username,
		Staff:          staff,
	}
}
