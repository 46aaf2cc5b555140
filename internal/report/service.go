// Package report assembles the views served to users on top of the
// classification cache: statistics, the flat table, word clouds and exports.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/cache"
	"github.com/kiranshivaraju/venter/internal/export"
	"github.com/kiranshivaraju/venter/internal/metrics"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
)

const defaultStatsTTL = time.Hour

var (
	// ErrForbidden is returned when the actor may not see the artifact.
	ErrForbidden = errors.New("artifact not visible to caller")
	// ErrUnknownDomain is returned for a domain the result does not contain.
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrInvalidCorrection is returned for a correction of a row that does not exist.
	ErrInvalidCorrection = errors.New("invalid correction")
)

// Store is the part of store.Store the views read and update.
type Store interface {
	ListArtifacts(ctx context.Context, filter store.ArtifactFilter) ([]*models.Artifact, int, error)
	ListCategories(ctx context.Context, orgID uuid.UUID) ([]string, error)
	UpdatePredictionState(ctx context.Context, id uuid.UUID, state string, opts ...store.ArtifactUpdateOption) error
	SetCorrectionsSaved(ctx context.Context, id uuid.UUID, exportPath string) error
}

// Predictor is the classification cache. prediction.Service implements it.
type Predictor interface {
	Artifact(ctx context.Context, id uuid.UUID) (*models.Artifact, error)
	Result(ctx context.Context, id uuid.UUID) (*models.Result, error)
	TableRows(ctx context.Context, id uuid.UUID) ([]models.TableRow, error)
	Layout() artifact.Layout
}

// Service serves the per-artifact views.
type Service struct {
	store     Store
	predictor Predictor
	words     *wordfreq.Cache
	cache     cache.Cache
	statsTTL  time.Duration
	metrics   *metrics.Metrics
}

type Option func(*Service)

// WithStatsCache keeps computed statistics in c for ttl.
func WithStatsCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.statsTTL = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service.
func NewService(st Store, p Predictor, words *wordfreq.Cache, opts ...Option) *Service {
	s := &Service{store: st, predictor: p, words: words, statsTTL: defaultStatsTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TableView is the flat-shape page: rows by confidence plus filter values.
type TableView struct {
	Rows       []models.TableRow `json:"rows"`
	Wards      []string          `json:"wards"`
	Dates      []string          `json:"dates"`
	Categories []string          `json:"categories"`
}

// --- visibility ---

// CanView reports whether actor may see a. Staff see their whole
// organisation; everyone else only their own uploads.
func CanView(actor models.Actor, a *models.Artifact) bool {
	if a.OrganisationID != actor.OrganisationID {
		return false
	}
	return actor.Staff || a.Owner == actor.Username
}

// VisibleArtifacts lists the artifacts actor may see, newest first.
func (s *Service) VisibleArtifacts(ctx context.Context, actor models.Actor, page, limit int) ([]*models.Artifact, int, error) {
	filter := store.ArtifactFilter{OrganisationID: actor.OrganisationID, Page: page, Limit: limit}
	if !actor.Staff {
		filter.Owner = actor.Username
	}
	return s.store.ListArtifacts(ctx, filter)
}

// Artifact loads an artifact the actor may see.
func (s *Service) Artifact(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Artifact, error) {
	a, err := s.predictor.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, a) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
	}
	return a, nil
}

// --- nested views ---

// Result returns the raw nested result.
func (s *Service) Result(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Result, error) {
	if _, err := s.Artifact(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.predictor.Result(ctx, id)
}

// Statistics returns the chart rows of every domain, or of one domain when
// domain is not empty.
func (s *Service) Statistics(ctx context.Context, actor models.Actor, id uuid.UUID, domain string) ([]reshape.DomainStats, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := cache.StatisticsKey(id, domain)
	if stats, ok := s.cachedStats(ctx, key); ok {
		return stats, nil
	}

	res, err := s.predictor.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	var stats []reshape.DomainStats
	if domain == "" {
		stats = reshape.Statistics(res, a.Variant)
	} else {
		d, ok := res.Domain(domain)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
		}
		stats = []reshape.DomainStats{reshape.DomainStatistics(d, a.Variant, reshape.PolicyFor(a.Variant))}
	}

	s.storeStats(ctx, key, stats)
	return stats, nil
}

// Chart returns the chart-editor rows, which keep every category, and
// re-records the artifact's output paths.
func (s *Service) Chart(ctx context.Context, actor models.Actor, id uuid.UUID) ([]reshape.DomainStats, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.predictor.Result(ctx, id)
	if err != nil {
		return nil, err
	}

	layout := s.predictor.Layout()
	if err := s.store.UpdatePredictionState(ctx, id, models.PredictionComputed,
		store.WithOutputJSON(layout.ResultJSON(a)), store.WithOutputExport(layout.ResultXLSX(a))); err != nil {
		slog.Warn("refreshing output paths", "artifact_id", id, "error", err)
	}
	return reshape.ChartStatistics(res, a.Variant), nil
}

// DomainCategories lists the categories selectable for a word cloud. Flat
// artifacts use the organisation's category list.
func (s *Service) DomainCategories(ctx context.Context, actor models.Actor, id uuid.UUID, domain string) ([]string, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Variant.Tabular() {
		return s.store.ListCategories(ctx, a.OrganisationID)
	}

	res, err := s.predictor.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	d, ok := res.Domain(domain)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	out := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		if c.Name == models.StatisticsEntry {
			continue
		}
		out = append(out, reshape.Label(c.Name))
	}
	return out, nil
}

// --- flat views ---

// Table returns the flat rows sorted by confidence with the filter values
// and the organisation's category list.
func (s *Service) Table(ctx context.Context, actor models.Actor, id uuid.UUID) (*TableView, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.predictor.TableRows(ctx, id)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx, a.OrganisationID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return &TableView{
		Rows:       reshape.SortByConfidence(rows),
		Wards:      reshape.Wards(rows),
		Dates:      reshape.Dates(rows),
		Categories: categories,
	}, nil
}

// SaveCorrections records user-chosen categories keyed by row index. Rows
// without an entry keep their current labels. Without saved nothing is
// rewritten and only the export path is recorded. Saved corrections drop the
// artifact's word cloud so it is regrouped on the next request.
func (s *Service) SaveCorrections(ctx context.Context, actor models.Actor, id uuid.UUID, corrections map[int][]string, saved bool) error {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return err
	}
	rows, err := s.predictor.TableRows(ctx, id)
	if err != nil {
		return err
	}
	csvPath := s.predictor.Layout().ResultCSV(a)

	if !saved {
		return s.store.UpdatePredictionState(ctx, id, models.PredictionComputed, store.WithOutputExport(csvPath))
	}

	lists := make([][]string, len(rows))
	for i := range rows {
		lists[i] = rows[i].Labels()
	}
	for idx, labels := range corrections {
		if idx < 0 || idx >= len(rows) {
			return fmt.Errorf("%w: row %d of %d", ErrInvalidCorrection, idx, len(rows))
		}
		lists[idx] = labels
	}

	if !artifact.Exists(csvPath) {
		if err := export.WriteTable(s.predictor.Layout().InputPath(a), csvPath, rows); err != nil {
			return fmt.Errorf("rebuild table export: %w", err)
		}
	}
	if err := export.ApplyCorrections(csvPath, lists); err != nil {
		return fmt.Errorf("apply corrections: %w", err)
	}
	if err := s.store.SetCorrectionsSaved(ctx, id, csvPath); err != nil {
		return fmt.Errorf("record corrections: %w", err)
	}
	if err := s.words.Invalidate(ctx, a); err != nil {
		return fmt.Errorf("invalidate word cloud: %w", err)
	}
	return nil
}

// --- word cloud ---

// WordCloud returns the word counts of one category. Flat artifacts have a
// single domain and ignore the domain argument.
func (s *Service) WordCloud(ctx context.Context, actor models.Actor, id uuid.UUID, domain, category string) ([]wordfreq.WordCount, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	build := func(ctx context.Context) (wordfreq.Doc, error) {
		if a.Variant.Tabular() {
			rows, err := s.predictor.TableRows(ctx, id)
			if err != nil {
				return nil, err
			}
			return wordfreq.FromTable(rows), nil
		}
		res, err := s.predictor.Result(ctx, id)
		if err != nil {
			return nil, err
		}
		return wordfreq.FromResult(ctx, res)
	}

	doc, err := s.words.Load(ctx, a, build)
	if err != nil {
		return nil, err
	}
	if a.Variant.Tabular() {
		domain = wordfreq.TableDomain
	}
	return wordfreq.Lookup(doc, domain, category), nil
}

// --- export ---

// ExportPath returns the spreadsheet or CSV export of an artifact,
// classifying it first if needed. A missing export is rebuilt from the
// cached result.
func (s *Service) ExportPath(ctx context.Context, actor models.Actor, id uuid.UUID) (string, error) {
	a, err := s.Artifact(ctx, actor, id)
	if err != nil {
		return "", err
	}
	layout := s.predictor.Layout()
	path := layout.ExportPath(a)

	if a.Variant.Tabular() {
		rows, err := s.predictor.TableRows(ctx, id)
		if err != nil {
			return "", err
		}
		if !artifact.Exists(path) {
			if err := export.WriteTable(layout.InputPath(a), path, rows); err != nil {
				return "", fmt.Errorf("rebuild table export: %w", err)
			}
		}
		return path, nil
	}

	res, err := s.predictor.Result(ctx, id)
	if err != nil {
		return "", err
	}
	if !artifact.Exists(path) {
		if err := export.WriteWorkbook(path, res, a.Variant); err != nil {
			return "", fmt.Errorf("rebuild workbook export: %w", err)
		}
		if err := s.store.UpdatePredictionState(ctx, id, models.PredictionComputed, store.WithOutputExport(path)); err != nil {
			slog.Warn("recording export path", "artifact_id", id, "error", err)
		}
	}
	return path, nil
}

// --- statistics cache ---

func (s *Service) cachedStats(ctx context.Context, key string) ([]reshape.DomainStats, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("statistics cache get", "key", key, "error", err)
		return nil, false
	}
	s.metrics.CacheLookup("statistics", ok)
	if !ok {
		return nil, false
	}
	var stats []reshape.DomainStats
	if err := json.Unmarshal(data, &stats); err != nil {
		slog.Warn("statistics cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return stats, true
}

func (s *Service) storeStats(ctx context.Context, key string, stats []reshape.DomainStats) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.statsTTL); err != nil {
		slog.Warn("statistics cache set", "key", key, "error", err)
	}
}
