package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/venter/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT k.id, k.organisation_id, o.name, k.username, k.name, k.key_hash, k.key_prefix, k.scopes,
		        k.last_used_at, k.deleted_at, k.created_at, k.updated_at
		 FROM api_keys k JOIN organisations o ON o.id = k.organisation_id
		 WHERE k.key_prefix = $1 AND k.deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OrganisationID, &k.Organisation, &k.Username, &k.Name, &k.KeyHash,
			&k.KeyPrefix, &k.Scopes, &k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, organisation_id, username, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		key.ID, key.OrganisationID, key.Username, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes,
		key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Organisations ---

func (s *PostgresStore) CreateOrganisation(ctx context.Context, org *models.Organisation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO organisations (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		org.ID, org.Name, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create organisation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrganisationByName(ctx context.Context, name string) (*models.Organisation, error) {
	var o models.Organisation
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM organisations WHERE name = $1`, name,
	).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organisation: %w", err)
	}
	return &o, nil
}

// AddDomainKeywords upserts a domain of a proposal and appends its keywords.
// Domains and keywords keep their insertion order.
func (s *PostgresStore) AddDomainKeywords(ctx context.Context, orgID uuid.UUID, proposal string, dk models.DomainKeywords) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var domainID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO domains (id, organisation_id, proposal, name, position)
		 VALUES ($1, $2, $3, $4, (SELECT COUNT(*) FROM domains WHERE organisation_id = $2 AND proposal = $3))
		 ON CONFLICT (organisation_id, proposal, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		uuid.New(), orgID, proposal, dk.Domain,
	).Scan(&domainID)
	if err != nil {
		return fmt.Errorf("upsert domain: %w", err)
	}

	for _, kw := range dk.Keywords {
		_, err := tx.Exec(ctx,
			`INSERT INTO keywords (id, domain_id, keyword, position)
			 VALUES ($1, $2, $3, (SELECT COUNT(*) FROM keywords WHERE domain_id = $2))
			 ON CONFLICT (domain_id, keyword) DO NOTHING`,
			uuid.New(), domainID, kw)
		if err != nil {
			return fmt.Errorf("insert keyword %q: %w", kw, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListDomainKeywords(ctx context.Context, orgID uuid.UUID, proposal string) ([]models.DomainKeywords, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.name, k.keyword
		 FROM domains d LEFT JOIN keywords k ON k.domain_id = d.id
		 WHERE d.organisation_id = $1 AND d.proposal = $2
		 ORDER BY d.position, d.name, k.position`, orgID, proposal)
	if err != nil {
		return nil, fmt.Errorf("list domain keywords: %w", err)
	}
	defer rows.Close()

	var out []models.DomainKeywords
	for rows.Next() {
		var domain string
		var keyword *string
		if err := rows.Scan(&domain, &keyword); err != nil {
			return nil, fmt.Errorf("scan domain keyword: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Domain != domain {
			out = append(out, models.DomainKeywords{Domain: domain, Keywords: []string{}})
		}
		if keyword != nil {
			last := &out[len(out)-1]
			last.Keywords = append(last.Keywords, *keyword)
		}
	}
	return out, rows.Err()
}

// SetCategories replaces the organisation's category list.
func (s *PostgresStore) SetCategories(ctx context.Context, orgID uuid.UUID, categories []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE organisation_id = $1`, orgID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for i, name := range categories {
		_, err := tx.Exec(ctx,
			`INSERT INTO categories (id, organisation_id, name, position) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (organisation_id, name) DO NOTHING`,
			uuid.New(), orgID, name, i)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListCategories(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM categories WHERE organisation_id = $1 ORDER BY position`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// --- Artifacts ---

const artifactColumns = `a.id, a.organisation_id, o.name, a.owner, a.filename, a.uploaded_at, a.model_variant,
	a.proposal, a.domain_present, a.prediction_state, a.failure_reason, a.output_json, a.output_export,
	a.wordcloud_data, a.corrections_saved, a.created_at, a.updated_at`

func scanArtifact(row pgx.Row) (*models.Artifact, error) {
	var a models.Artifact
	var variant string
	err := row.Scan(&a.ID, &a.OrganisationID, &a.Organisation, &a.Owner, &a.Filename, &a.UploadedAt, &variant,
		&a.Proposal, &a.DomainPresent, &a.State, &a.FailureReason, &a.OutputJSON, &a.OutputExport,
		&a.WordcloudData, &a.CorrectionsSaved, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Variant = models.ModelVariant(variant)
	return &a, nil
}

func (s *PostgresStore) CreateArtifact(ctx context.Context, a *models.Artifact) error {
	if a.State == "" {
		a.State = models.PredictionPending
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, organisation_id, owner, filename, uploaded_at, model_variant, proposal,
		                        domain_present, prediction_state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.OrganisationID, a.Owner, a.Filename, a.UploadedAt, string(a.Variant), a.Proposal,
		a.DomainPresent, a.State, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, id uuid.UUID) (*models.Artifact, error) {
	a, err := scanArtifact(s.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts a JOIN organisations o ON o.id = a.organisation_id
		 WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*models.Artifact, int, error) {
	where := "a.organisation_id = $1"
	args := []any{filter.OrganisationID}
	if filter.Owner != "" {
		where += " AND a.owner = $2"
		args = append(args, filter.Owner)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM artifacts a WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count artifacts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(
		`SELECT %s FROM artifacts a JOIN organisations o ON o.id = a.organisation_id
		 WHERE %s ORDER BY a.uploaded_at DESC LIMIT $%d OFFSET $%d`,
		artifactColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

var validTransitions = map[string][]string{
	models.PredictionPending:  {models.PredictionComputed, models.PredictionFailed},
	models.PredictionFailed:   {models.PredictionComputed, models.PredictionFailed},
	models.PredictionComputed: {models.PredictionComputed},
}

// CanTransition reports whether a prediction may move from one state to another.
func CanTransition(from, to string) bool {
	for _, a := range validTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func (s *PostgresStore) UpdatePredictionState(ctx context.Context, id uuid.UUID, state string, opts ...ArtifactUpdateOption) error {
	params := ResolveUpdate(opts...)

	var current string
	err := s.pool.QueryRow(ctx, `SELECT prediction_state FROM artifacts WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get prediction state: %w", err)
	}

	if !CanTransition(current, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, state)
	}

	query := `UPDATE artifacts SET prediction_state = $2, updated_at = $3`
	args := []any{id, state, time.Now().UTC()}
	argIdx := 4

	if state == models.PredictionComputed {
		query += ", failure_reason = NULL"
	}
	if params.FailureReason != nil {
		query += fmt.Sprintf(", failure_reason = $%d", argIdx)
		args = append(args, *params.FailureReason)
		argIdx++
	}
	if params.OutputJSON != nil {
		query += fmt.Sprintf(", output_json = $%d", argIdx)
		args = append(args, *params.OutputJSON)
		argIdx++
	}
	if params.OutputExport != nil {
		query += fmt.Sprintf(", output_export = $%d", argIdx)
		args = append(args, *params.OutputExport)
		argIdx++
	}

	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update prediction state: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetWordcloudData(ctx context.Context, id uuid.UUID, path string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE artifacts SET wordcloud_data = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("set wordcloud data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetCorrectionsSaved(ctx context.Context, id uuid.UUID, exportPath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE artifacts SET corrections_saved = TRUE, output_export = $2, updated_at = NOW() WHERE id = $1`,
		id, exportPath)
	if err != nil {
		return fmt.Errorf("set corrections saved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
