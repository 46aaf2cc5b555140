package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/venter/internal/api/middleware"
	"github.com/kiranshivaraju/venter/internal/api/response"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/prediction"
	"github.com/kiranshivaraju/venter/internal/report"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Views defines the interface the artifact handlers depend on.
// report.Service implements it.
type Views interface {
	VisibleArtifacts(ctx context.Context, actor models.Actor, page, limit int) ([]*models.Artifact, int, error)
	Artifact(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Artifact, error)
	Result(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Result, error)
	Statistics(ctx context.Context, actor models.Actor, id uuid.UUID, domain string) ([]reshape.DomainStats, error)
	Chart(ctx context.Context, actor models.Actor, id uuid.UUID) ([]reshape.DomainStats, error)
	DomainCategories(ctx context.Context, actor models.Actor, id uuid.UUID, domain string) ([]string, error)
	Table(ctx context.Context, actor models.Actor, id uuid.UUID) (*report.TableView, error)
	SaveCorrections(ctx context.Context, actor models.Actor, id uuid.UUID, corrections map[int][]string, saved bool) error
	WordCloud(ctx context.Context, actor models.Actor, id uuid.UUID, domain, category string) ([]wordfreq.WordCount, error)
	ExportPath(ctx context.Context, actor models.Actor, id uuid.UUID) (string, error)
}

// NewListArtifactsHandler returns an http.HandlerFunc for GET /api/v1/artifacts.
func NewListArtifactsHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(r, "limit", defaultPageLimit)
		if limit < 1 {
			limit = defaultPageLimit
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		artifacts, total, err := svc.VisibleArtifacts(r.Context(), actor, page, limit)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Collection(w, artifacts, response.Pagination(page, limit, total))
	}
}

// NewGetArtifactHandler returns an http.HandlerFunc for GET /api/v1/artifacts/{artifactID}.
func NewGetArtifactHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		a, err := svc.Artifact(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, a)
	}
}

// NewResultHandler returns an http.HandlerFunc for GET /api/v1/artifacts/{artifactID}/result.
func NewResultHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		res, err := svc.Result(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewStatisticsHandler returns an http.HandlerFunc for
// GET /api/v1/artifacts/{artifactID}/statistics. The optional domain query
// parameter narrows the rows to one domain.
func NewStatisticsHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		domain := strings.TrimSpace(r.URL.Query().Get("domain"))
		stats, err := svc.Statistics(r.Context(), actor, id, domain)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}

// NewChartHandler returns an http.HandlerFunc for GET /api/v1/artifacts/{artifactID}/chart.
func NewChartHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		stats, err := svc.Chart(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}

// NewDomainCategoriesHandler returns an http.HandlerFunc for
// GET /api/v1/artifacts/{artifactID}/domains/{domain}/categories.
func NewDomainCategoriesHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		categories, err := svc.DomainCategories(r.Context(), actor, id, chi.URLParam(r, "domain"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, categories)
	}
}

// NewTableHandler returns an http.HandlerFunc for GET /api/v1/artifacts/{artifactID}/table.
func NewTableHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		view, err := svc.Table(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, view)
	}
}

type correctionsRequest struct {
	Saved       bool             `json:"saved"`
	Corrections map[int][]string `json:"corrections"`
}

// NewCorrectionsHandler returns an http.HandlerFunc for
// POST /api/v1/artifacts/{artifactID}/corrections. Corrections are keyed
// by row index.
func NewCorrectionsHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}

		var req correctionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := svc.SaveCorrections(r.Context(), actor, id, req.Corrections, req.Saved); err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, map[string]any{
			"saved":       req.Saved,
			"corrections": len(req.Corrections),
		})
	}
}

// NewWordCloudHandler returns an http.HandlerFunc for
// GET /api/v1/artifacts/{artifactID}/wordcloud?domain=&category=.
func NewWordCloudHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		category := q.Get("category")
		if strings.TrimSpace(category) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "category is required", nil)
			return
		}

		words, err := svc.WordCloud(r.Context(), actor, id, q.Get("domain"), category)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, words)
	}
}

// NewExportHandler returns an http.HandlerFunc for GET /api/v1/artifacts/{artifactID}/export.
func NewExportHandler(svc Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := artifactRequest(w, r)
		if !ok {
			return
		}
		path, err := svc.ExportPath(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.Attachment(w, r, path, filepath.Base(path))
	}
}

// --- helpers ---

func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := mw.GetActor(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing caller", nil)
	}
	return actor, ok
}

func artifactRequest(w http.ResponseWriter, r *http.Request) (models.Actor, uuid.UUID, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return models.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "artifactID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artifactID must be a UUID", nil)
		return models.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// writeServiceError maps service errors onto the error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, prediction.ErrMissingArtifact):
		response.Error(w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", "Artifact not found", nil)
	case errors.Is(err, report.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Artifact not visible to caller", nil)
	case errors.Is(err, report.ErrUnknownDomain):
		response.Error(w, http.StatusNotFound, "DOMAIN_NOT_FOUND", "Domain not found in result", nil)
	case errors.Is(err, report.ErrInvalidCorrection):
		response.Error(w, http.StatusBadRequest, "INVALID_CORRECTION", err.Error(), nil)
	case errors.Is(err, artifact.ErrUnsafePath):
		response.Error(w, http.StatusUnprocessableEntity, "UNSAFE_ARTIFACT", "Artifact names cannot be resolved safely", nil)
	case errors.Is(err, prediction.ErrWrongShape):
		response.Error(w, http.StatusConflict, "WRONG_SHAPE", "View not available for this model variant", nil)
	case errors.Is(err, prediction.ErrMissingColumn):
		response.Error(w, http.StatusUnprocessableEntity, "MISSING_COLUMN", err.Error(), nil)
	case errors.Is(err, models.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "CLASSIFIER_TIMEOUT",
			"Classification took too long and was cancelled", nil)
	case errors.Is(err, models.ErrClassifierUnavailable):
		response.Error(w, http.StatusBadGateway, "CLASSIFIER_UNAVAILABLE", "The classifier is not available", nil)
	case errors.Is(err, prediction.ErrClassifierFailure):
		response.Error(w, http.StatusBadGateway, "CLASSIFIER_FAILED", "Classification failed", nil)
	case errors.Is(err, prediction.ErrCorruptCache):
		slog.Error("corrupt prediction cache", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "CORRUPT_CACHE", "Stored prediction is unreadable", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
