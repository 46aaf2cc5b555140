// Package prediction runs each uploaded artifact through its classifier at
// most once and serves the persisted result afterwards.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/cache"
	"github.com/kiranshivaraju/venter/internal/export"
	"github.com/kiranshivaraju/venter/internal/metrics"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/kiranshivaraju/venter/pkg/models"
)

const (
	shapeNested = "nested"
	shapeFlat   = "flat"

	defaultTopK         = 3
	defaultLockTTL      = 10 * time.Minute
	defaultPollInterval = 250 * time.Millisecond
)

// Columns of the flat-shape input.
const (
	DescriptionColumn = "complaint_description"
	WardColumn        = "ward_name"
	CreatedColumn     = "complaint_created"
)

// ArtifactStore is the part of store.Store the service needs.
type ArtifactStore interface {
	GetArtifact(ctx context.Context, id uuid.UUID) (*models.Artifact, error)
	UpdatePredictionState(ctx context.Context, id uuid.UUID, state string, opts ...store.ArtifactUpdateOption) error
	ListDomainKeywords(ctx context.Context, orgID uuid.UUID, proposal string) ([]models.DomainKeywords, error)
}

// Locker claims an artifact across processes. cache.RedisCache implements it.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Service is the classification cache.
type Service struct {
	store      ArtifactStore
	classifier models.Classifier
	layout     artifact.Layout
	locks      *keyedMutex

	locker       Locker
	lockTTL      time.Duration
	pollInterval time.Duration
	metrics      *metrics.Metrics
	timeout      time.Duration
	scratchDir   string
	topK         int
}

type Option func(*Service)

// WithLocker adds a distributed claim on top of the in-process lock.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeout bounds every classifier call. Zero means no deadline beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithScratchDir gives each classification its own working directory under
// dir, cleared once the result is persisted.
func WithScratchDir(dir string) Option {
	return func(s *Service) { s.scratchDir = dir }
}

func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

func withPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// NewService creates a new Service.
func NewService(st ArtifactStore, c models.Classifier, layout artifact.Layout, opts ...Option) *Service {
	s := &Service{
		store:        st,
		classifier:   c,
		layout:       layout,
		locks:        newKeyedMutex(),
		lockTTL:      defaultLockTTL,
		pollInterval: defaultPollInterval,
		topK:         defaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the on-disk layout the service writes to.
func (s *Service) Layout() artifact.Layout {
	return s.layout
}

// Artifact loads an artifact, mapping an unknown id to ErrMissingArtifact.
// Artifacts whose names would escape the media root are refused with
// artifact.ErrUnsafePath.
func (s *Service) Artifact(ctx context.Context, id uuid.UUID) (*models.Artifact, error) {
	a, err := s.store.GetArtifact(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	if err := s.layout.Check(a); err != nil {
		slog.Warn("refusing artifact", "artifact_id", id, "error", err)
		return nil, err
	}
	return a, nil
}

// Result returns the nested classification result of an artifact, running
// the classifier the first time it is asked for.
func (s *Service) Result(ctx context.Context, id uuid.UUID) (*models.Result, error) {
	a, err := s.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Variant.Tabular() {
		return nil, fmt.Errorf("%w: %s", ErrWrongShape, a.Variant)
	}
	if a.HasPrediction() {
		s.metrics.CacheLookup(shapeNested, true)
		return s.readResult(a)
	}

	release, err := s.exclusive(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another caller may have finished while we waited.
	if a, err = s.Artifact(ctx, id); err != nil {
		return nil, err
	}
	if a.HasPrediction() {
		s.metrics.CacheLookup(shapeNested, true)
		return s.readResult(a)
	}
	s.metrics.CacheLookup(shapeNested, false)

	res, err := s.classify(ctx, a)
	if err != nil {
		s.markFailed(ctx, a, err)
		return nil, fmt.Errorf("%w: %w", ErrClassifierFailure, err)
	}

	jsonPath := s.layout.ResultJSON(a)
	if err := s.persist(ctx, a, jsonPath, res); err != nil {
		return nil, err
	}
	s.clearScratch(a)

	exportPath := s.layout.ResultXLSX(a)
	if err := export.WriteWorkbook(exportPath, res, a.Variant); err != nil {
		slog.Error("writing workbook export", "artifact_id", a.ID, "error", err)
		s.metrics.DerivedFailure("workbook")
		return res, nil
	}
	s.recordExport(ctx, a, exportPath)
	return res, nil
}

// Table returns the flat per-row result of an artifact sorted by highest
// confidence. Saved user corrections replace the predicted labels.
func (s *Service) Table(ctx context.Context, id uuid.UUID) ([]models.TableRow, error) {
	rows, err := s.TableRows(ctx, id)
	if err != nil {
		return nil, err
	}
	return reshape.SortByConfidence(rows), nil
}

// TableRows is Table in input order.
func (s *Service) TableRows(ctx context.Context, id uuid.UUID) ([]models.TableRow, error) {
	a, err := s.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Variant.Tabular() {
		return nil, fmt.Errorf("%w: %s", ErrWrongShape, a.Variant)
	}
	if a.HasPrediction() {
		s.metrics.CacheLookup(shapeFlat, true)
		return s.readTable(a)
	}

	release, err := s.exclusive(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if a, err = s.Artifact(ctx, id); err != nil {
		return nil, err
	}
	if a.HasPrediction() {
		s.metrics.CacheLookup(shapeFlat, true)
		return s.readTable(a)
	}
	s.metrics.CacheLookup(shapeFlat, false)

	inputs, err := ReadInputRows(s.layout.InputPath(a))
	if err != nil {
		return nil, err
	}
	rows, err := s.rank(ctx, a, inputs)
	if err != nil {
		s.markFailed(ctx, a, err)
		return nil, fmt.Errorf("%w: %w", ErrClassifierFailure, err)
	}

	if err := s.persist(ctx, a, s.layout.ResultJSON(a), rows); err != nil {
		return nil, err
	}
	s.clearScratch(a)

	csvPath := s.layout.ResultCSV(a)
	if err := export.WriteTable(s.layout.InputPath(a), csvPath, rows); err != nil {
		slog.Error("writing table export", "artifact_id", a.ID, "error", err)
		s.metrics.DerivedFailure("table")
		return rows, nil
	}
	s.recordExport(ctx, a, csvPath)
	return rows, nil
}

// ReadInputRows reads the flat-shape input: one row per complaint, with the
// description column required and ward and creation time optional.
func ReadInputRows(path string) ([]reshape.InputRow, error) {
	sheet, err := artifact.ReadSheet(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	desc := sheet.Column(DescriptionColumn)
	if desc < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, DescriptionColumn)
	}
	ward, created := sheet.Column(WardColumn), sheet.Column(CreatedColumn)

	rows := make([]reshape.InputRow, len(sheet.Records))
	for i, rec := range sheet.Records {
		rows[i] = reshape.InputRow{
			Description: sheet.Value(rec, desc),
			Ward:        sheet.Value(rec, ward),
			Created:     sheet.Value(rec, created),
		}
	}
	return rows, nil
}

func (s *Service) classify(ctx context.Context, a *models.Artifact) (*models.Result, error) {
	req := models.ClassifyRequest{
		InputPath:     s.layout.InputPath(a),
		Variant:       a.Variant,
		DomainPresent: a.DomainPresent,
		ScratchDir:    s.scratchFor(a),
	}
	if a.Variant == models.VariantKeyword {
		proposal := ""
		if a.Proposal != nil {
			proposal = *a.Proposal
		}
		domains, err := s.store.ListDomainKeywords(ctx, a.OrganisationID, proposal)
		if err != nil {
			return nil, fmt.Errorf("load domain keywords: %w", err)
		}
		req.Domains = domains
	}

	cctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.classifier.Classify(cctx, req)
	s.metrics.ObserveClassifier(s.classifier.Name(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty result", models.ErrInvalidResponse)
	}
	return res, nil
}

func (s *Service) rank(ctx context.Context, a *models.Artifact, inputs []reshape.InputRow) ([]models.TableRow, error) {
	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Description
	}

	cctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	preds, err := s.classifier.TopCategories(cctx, texts, s.topK)
	s.metrics.ObserveClassifier(s.classifier.Name(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	rows, err := reshape.Flatten(inputs, preds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return rows, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// persist writes v as the artifact's cached result, then marks it computed.
// The state never says computed before the file is durable.
func (s *Service) persist(ctx context.Context, a *models.Artifact, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode result: %v", ErrExportIO, err)
	}
	if err := artifact.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := s.store.UpdatePredictionState(ctx, a.ID, models.PredictionComputed, store.WithOutputJSON(path)); err != nil {
		return fmt.Errorf("recording prediction state: %w", err)
	}
	a.State = models.PredictionComputed
	a.OutputJSON = &path
	return nil
}

func (s *Service) recordExport(ctx context.Context, a *models.Artifact, path string) {
	if err := s.store.UpdatePredictionState(ctx, a.ID, models.PredictionComputed, store.WithOutputExport(path)); err != nil {
		slog.Warn("recording export path", "artifact_id", a.ID, "error", err)
		return
	}
	a.OutputExport = &path
}

func (s *Service) markFailed(ctx context.Context, a *models.Artifact, cause error) {
	slog.Error("classification failed", "artifact_id", a.ID, "classifier", s.classifier.Name(), "error", cause)
	// The request context may already be gone when the classifier timed out.
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.UpdatePredictionState(uctx, a.ID, models.PredictionFailed,
		store.WithFailureReason(cause.Error())); err != nil {
		slog.Warn("recording failed prediction", "artifact_id", a.ID, "error", err)
	}
}

func (s *Service) scratchFor(a *models.Artifact) string {
	if s.scratchDir == "" {
		return ""
	}
	return filepath.Join(s.scratchDir, a.ID.String())
}

func (s *Service) clearScratch(a *models.Artifact) {
	dir := s.scratchFor(a)
	if dir == "" {
		return
	}
	if err := artifact.RemoveDir(dir); err != nil {
		slog.Warn("clearing classifier scratch dir", "artifact_id", a.ID, "dir", dir, "error", err)
		s.metrics.DerivedFailure("scratch")
	}
}

func (s *Service) readResult(a *models.Artifact) (*models.Result, error) {
	data, err := artifact.ReadFile(s.cachedPath(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}
	var res models.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptCache, a.ID, err)
	}
	return &res, nil
}

func (s *Service) readTable(a *models.Artifact) ([]models.TableRow, error) {
	data, err := artifact.ReadFile(s.cachedPath(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}
	var rows []models.TableRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptCache, a.ID, err)
	}
	if a.CorrectionsSaved {
		s.applySavedCorrections(a, rows)
	}
	return rows, nil
}

// applySavedCorrections overlays the category lists stored in the exported
// table. A missing or mismatched table leaves the predictions in place.
func (s *Service) applySavedCorrections(a *models.Artifact, rows []models.TableRow) {
	path := s.layout.ResultCSV(a)
	if a.OutputExport != nil && strings.HasSuffix(*a.OutputExport, ".csv") {
		path = *a.OutputExport
	}
	corrected, err := export.ReadPredictedCategories(path)
	if err == nil && len(corrected) != len(rows) {
		err = fmt.Errorf("%w: %d lists for %d rows", export.ErrRowCount, len(corrected), len(rows))
	}
	if err != nil {
		slog.Warn("reading saved corrections", "artifact_id", a.ID, "error", err)
		s.metrics.DerivedFailure("corrections")
		return
	}
	for i := range rows {
		rows[i].Corrected = corrected[rows[i].Index]
	}
}

func (s *Service) cachedPath(a *models.Artifact) string {
	if a.OutputJSON != nil && *a.OutputJSON != "" {
		return *a.OutputJSON
	}
	return s.layout.ResultJSON(a)
}

// exclusive enters the per-artifact region: first the in-process lock, then
// the distributed claim when a Locker is configured.
func (s *Service) exclusive(ctx context.Context, id uuid.UUID) (func(), error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	unclaim, err := s.claim(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		unclaim()
		unlock()
	}, nil
}

func (s *Service) claim(ctx context.Context, id uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := cache.ArtifactLockKey(id)
	token := uuid.NewString()
	for {
		ok, err := s.locker.AcquireLock(ctx, key, token, s.lockTTL)
		if err != nil {
			slog.Warn("distributed artifact lock unavailable, using local lock only", "artifact_id", id, "error", err)
			return func() {}, nil
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := s.locker.ReleaseLock(rctx, key, token); err != nil {
					slog.Warn("releasing artifact lock", "artifact_id", id, "error", err)
				}
			}, nil
		}

		t := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
