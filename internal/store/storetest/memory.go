// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/kiranshivaraju/venter/pkg/models"
)

// Transition records one UpdatePredictionState call.
type Transition struct {
	ID     uuid.UUID
	State  string
	Update store.ArtifactUpdate
}

// MemoryStore implements store.Store with the same state rules as the
// Postgres store. Returned artifacts are copies.
type MemoryStore struct {
	mu          sync.Mutex
	keys        map[uuid.UUID]*models.APIKey
	orgs        map[uuid.UUID]*models.Organisation
	domains     map[string][]models.DomainKeywords
	categories  map[uuid.UUID][]string
	artifacts   map[uuid.UUID]*models.Artifact
	transitions []Transition

	// UpdateErr, when set, fails every UpdatePredictionState call.
	UpdateErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:       make(map[uuid.UUID]*models.APIKey),
		orgs:       make(map[uuid.UUID]*models.Organisation),
		domains:    make(map[string][]models.DomainKeywords),
		categories: make(map[uuid.UUID][]string),
		artifacts:  make(map[uuid.UUID]*models.Artifact),
	}
}

// Transitions returns the recorded state changes in call order.
func (m *MemoryStore) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transition(nil), m.transitions...)
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// --- API Keys ---

func (m *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			cp := *k
			if org, ok := m.orgs[k.OrganisationID]; ok {
				cp.Organisation = org.Name
			}
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (m *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.ID == key.ID || k.KeyHash == key.KeyHash {
			return store.ErrDuplicateKey
		}
	}
	cp := *key
	m.keys[key.ID] = &cp
	return nil
}

// --- Organisations ---

func (m *MemoryStore) CreateOrganisation(_ context.Context, org *models.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Name == org.Name {
			return store.ErrDuplicateKey
		}
	}
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *MemoryStore) GetOrganisationByName(_ context.Context, name string) (*models.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Name == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func domainKey(orgID uuid.UUID, proposal string) string {
	return orgID.String() + "/" + proposal
}

func (m *MemoryStore) AddDomainKeywords(_ context.Context, orgID uuid.UUID, proposal string, dk models.DomainKeywords) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domainKey(orgID, proposal)
	list := m.domains[key]
	i := -1
	for j := range list {
		if list[j].Domain == dk.Domain {
			i = j
			break
		}
	}
	if i < 0 {
		list = append(list, models.DomainKeywords{Domain: dk.Domain, Keywords: []string{}})
		i = len(list) - 1
	}
	for _, kw := range dk.Keywords {
		if !slices.Contains(list[i].Keywords, kw) {
			list[i].Keywords = append(list[i].Keywords, kw)
		}
	}
	m.domains[key] = list
	return nil
}

func (m *MemoryStore) ListDomainKeywords(_ context.Context, orgID uuid.UUID, proposal string) ([]models.DomainKeywords, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DomainKeywords
	for _, dk := range m.domains[domainKey(orgID, proposal)] {
		out = append(out, models.DomainKeywords{Domain: dk.Domain, Keywords: append([]string{}, dk.Keywords...)})
	}
	return out, nil
}

func (m *MemoryStore) SetCategories(_ context.Context, orgID uuid.UUID, categories []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []string
	for _, c := range categories {
		if !slices.Contains(list, c) {
			list = append(list, c)
		}
	}
	m.categories[orgID] = list
	return nil
}

func (m *MemoryStore) ListCategories(_ context.Context, orgID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.categories[orgID]...), nil
}

// --- Artifacts ---

func (m *MemoryStore) CreateArtifact(_ context.Context, a *models.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[a.ID]; ok {
		return store.ErrDuplicateKey
	}
	if a.State == "" {
		a.State = models.PredictionPending
	}
	cp := *a
	if org, ok := m.orgs[a.OrganisationID]; ok {
		cp.Organisation = org.Name
	}
	m.artifacts[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetArtifact(_ context.Context, id uuid.UUID) (*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListArtifacts(_ context.Context, filter store.ArtifactFilter) ([]*models.Artifact, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Artifact
	for _, a := range m.artifacts {
		if a.OrganisationID != filter.OrganisationID {
			continue
		}
		if filter.Owner != "" && a.Owner != filter.Owner {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UploadedAt.After(all[j].UploadedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []*models.Artifact{}, len(all), nil
	}
	end := min(start+limit, len(all))
	return all[start:end], len(all), nil
}

func (m *MemoryStore) UpdatePredictionState(_ context.Context, id uuid.UUID, state string, opts ...store.ArtifactUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	a, ok := m.artifacts[id]
	if !ok {
		return store.ErrNotFound
	}
	if !store.CanTransition(a.State, state) {
		return store.ErrInvalidTransition
	}
	u := store.ResolveUpdate(opts...)
	a.State = state
	if state == models.PredictionComputed {
		a.FailureReason = nil
	}
	if u.FailureReason != nil {
		a.FailureReason = u.FailureReason
	}
	if u.OutputJSON != nil {
		a.OutputJSON = u.OutputJSON
	}
	if u.OutputExport != nil {
		a.OutputExport = u.OutputExport
	}
	m.transitions = append(m.transitions, Transition{ID: id, State: state, Update: u})
	return nil
}

func (m *MemoryStore) SetWordcloudData(_ context.Context, id uuid.UUID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return store.ErrNotFound
	}
	if path == "" {
		a.WordcloudData = nil
		return nil
	}
	a.WordcloudData = &path
	return nil
}

func (m *MemoryStore) SetCorrectionsSaved(_ context.Context, id uuid.UUID, exportPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.CorrectionsSaved = true
	a.OutputExport = &exportPath
	return nil
}

var _ store.Store = (*MemoryStore)(nil)
