package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/venter/internal/api/middleware"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/classifier/mock"
	"github.com/kiranshivaraju/venter/internal/prediction"
	"github.com/kiranshivaraju/venter/internal/report"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/store/storetest"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock Views ---

// failingViews returns err from every view.
type failingViews struct{ err error }

func (f failingViews) VisibleArtifacts(context.Context, models.Actor, int, int) ([]*models.Artifact, int, error) {
	return nil, 0, f.err
}
func (f failingViews) Artifact(context.Context, models.Actor, uuid.UUID) (*models.Artifact, error) {
	return nil, f.err
}
func (f failingViews) Result(context.Context, models.Actor, uuid.UUID) (*models.Result, error) {
	return nil, f.err
}
func (f failingViews) Statistics(context.Context, models.Actor, uuid.UUID, string) ([]reshape.DomainStats, error) {
	return nil, f.err
}
func (f failingViews) Chart(context.Context, models.Actor, uuid.UUID) ([]reshape.DomainStats, error) {
	return nil, f.err
}
func (f failingViews) DomainCategories(context.Context, models.Actor, uuid.UUID, string) ([]string, error) {
	return nil, f.err
}
func (f failingViews) Table(context.Context, models.Actor, uuid.UUID) (*report.TableView, error) {
	return nil, f.err
}
func (f failingViews) SaveCorrections(context.Context, models.Actor, uuid.UUID, map[int][]string, bool) error {
	return f.err
}
func (f failingViews) WordCloud(context.Context, models.Actor, uuid.UUID, string, string) ([]wordfreq.WordCount, error) {
	return nil, f.err
}
func (f failingViews) ExportPath(context.Context, models.Actor, uuid.UUID) (string, error) {
	return "", f.err
}

var _ Views = failingViews{}
var _ Views = (*report.Service)(nil)

// --- helpers ---

type env struct {
	store  *storetest.MemoryStore
	layout artifact.Layout
	org    *models.Organisation
	actor  models.Actor
	views  *report.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := storetest.NewMemoryStore()
	org := &models.Organisation{ID: uuid.New(), Name: "CIVIS"}
	require.NoError(t, st.CreateOrganisation(context.Background(), org))
	require.NoError(t, st.SetCategories(context.Background(), org.ID, []string{"Garbage", "Roads", "Water"}))
	layout := artifact.NewLayout(t.TempDir())
	pred := prediction.NewService(st, mock.NewMockClassifier(), layout)
	return &env{
		store:  st,
		layout: layout,
		org:    org,
		actor:  models.Actor{OrganisationID: org.ID, Organisation: org.Name, Username: "asha"},
		views:  report.NewService(st, pred, wordfreq.NewCache(st, layout, nil)),
	}
}

func (e *env) upload(t *testing.T, variant models.ModelVariant, content string) *models.Artifact {
	t.Helper()
	a := &models.Artifact{
		ID:             uuid.New(),
		OrganisationID: e.org.ID,
		Organisation:   e.org.Name,
		Owner:          "asha",
		Filename:       "complaints.csv",
		UploadedAt:     time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
		Variant:        variant,
	}
	require.NoError(t, e.store.CreateArtifact(context.Background(), a))
	require.NoError(t, artifact.WriteFileAtomic(e.layout.InputPath(a), []byte(content)))
	return a
}

// request builds a request carrying actor and chi URL params.
func request(method, target string, body []byte, actor *models.Actor, params map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := r.Context()
	if actor != nil {
		ctx = mw.SetActor(ctx, *actor)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var envl struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envl))
	require.NoError(t, json.Unmarshal(envl.Data, v))
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envl struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envl))
	return envl.Error.Code
}

const responsesCSV = "response\nbins overflowing\n"

const complaintsCSV = "complaint_description,ward_name,complaint_created\n" +
	"bins overflowing,Ward 2,2024-03-01 09:15:00\n" +
	"pothole on main road,Ward 1,2024-03-02 10:00:00\n"

// --- request validation ---

func TestHandlers_MissingActor(t *testing.T) {
	h := NewResultHandler(failingViews{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/", nil, nil, map[string]string{"artifactID": uuid.NewString()}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, rec))
}

func TestHandlers_InvalidArtifactID(t *testing.T) {
	actor := models.Actor{Username: "asha"}
	h := NewResultHandler(failingViews{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/", nil, &actor, map[string]string{"artifactID": "not-a-uuid"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, rec))
}

func TestWriteServiceError_Mapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", prediction.ErrMissingArtifact), http.StatusNotFound, "ARTIFACT_NOT_FOUND"},
		{report.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{report.ErrUnknownDomain, http.StatusNotFound, "DOMAIN_NOT_FOUND"},
		{report.ErrInvalidCorrection, http.StatusBadRequest, "INVALID_CORRECTION"},
		{fmt.Errorf("%w: filename %q", artifact.ErrUnsafePath, "../x.csv"), http.StatusUnprocessableEntity, "UNSAFE_ARTIFACT"},
		{prediction.ErrWrongShape, http.StatusConflict, "WRONG_SHAPE"},
		{prediction.ErrMissingColumn, http.StatusUnprocessableEntity, "MISSING_COLUMN"},
		{fmt.Errorf("%w: %w", prediction.ErrClassifierFailure, models.ErrInferenceTimeout), http.StatusGatewayTimeout, "CLASSIFIER_TIMEOUT"},
		{fmt.Errorf("%w: %w", prediction.ErrClassifierFailure, models.ErrClassifierUnavailable), http.StatusBadGateway, "CLASSIFIER_UNAVAILABLE"},
		{fmt.Errorf("%w: boom", prediction.ErrClassifierFailure), http.StatusBadGateway, "CLASSIFIER_FAILED"},
		{prediction.ErrCorruptCache, http.StatusInternalServerError, "CORRUPT_CACHE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	actor := models.Actor{Username: "asha"}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewChartHandler(failingViews{err: tt.err}).ServeHTTP(rec,
				request(http.MethodGet, "/", nil, &actor, map[string]string{"artifactID": uuid.NewString()}))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errCode(t, rec))
		})
	}
}

// --- listing ---

func TestListArtifactsHandler_Pagination(t *testing.T) {
	e := newEnv(t)
	for range 3 {
		e.upload(t, models.VariantSentence, responsesCSV)
	}

	rec := httptest.NewRecorder()
	NewListArtifactsHandler(e.views).ServeHTTP(rec,
		request(http.MethodGet, "/api/v1/artifacts?page=1&limit=2", nil, &e.actor, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []models.Artifact `json:"data"`
		Meta struct {
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.Meta.Total)
	assert.True(t, body.Meta.HasNext)
}

// --- nested views ---

func TestStatisticsHandler(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantSentence, responsesCSV)
	params := map[string]string{"artifactID": a.ID.String()}

	rec := httptest.NewRecorder()
	NewStatisticsHandler(e.views).ServeHTTP(rec,
		request(http.MethodGet, "/?domain=General", nil, &e.actor, params))

	var stats []struct {
		Domain string  `json:"domain"`
		Rows   [][]any `json:"rows"`
	}
	decodeData(t, rec, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, "General", stats[0].Domain)
	assert.Equal(t, map[string]any{"role": "style"}, stats[0].Rows[0][2])

	rec = httptest.NewRecorder()
	NewStatisticsHandler(e.views).ServeHTTP(rec,
		request(http.MethodGet, "/?domain=Nope", nil, &e.actor, params))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultHandler_WrongShapeForTable(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantCategory, complaintsCSV)

	rec := httptest.NewRecorder()
	NewResultHandler(e.views).ServeHTTP(rec,
		request(http.MethodGet, "/", nil, &e.actor, map[string]string{"artifactID": a.ID.String()}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDomainCategoriesHandler(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantSentence, responsesCSV)

	rec := httptest.NewRecorder()
	NewDomainCategoriesHandler(e.views).ServeHTTP(rec, request(http.MethodGet, "/", nil, &e.actor,
		map[string]string{"artifactID": a.ID.String(), "domain": "General"}))

	var got []string
	decodeData(t, rec, &got)
	assert.Equal(t, []string{"Garbage", "Roads", models.NovelCategory}, got)
}

// --- flat views ---

func TestTableAndCorrectionsHandlers(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantCategory, complaintsCSV)
	params := map[string]string{"artifactID": a.ID.String()}

	rec := httptest.NewRecorder()
	NewTableHandler(e.views).ServeHTTP(rec, request(http.MethodGet, "/", nil, &e.actor, params))
	var view report.TableView
	decodeData(t, rec, &view)
	assert.Len(t, view.Rows, 2)
	assert.Equal(t, []string{"Ward 1", "Ward 2"}, view.Wards)

	body := []byte(`{"saved":true,"corrections":{"0":["Water"]}}`)
	rec = httptest.NewRecorder()
	NewCorrectionsHandler(e.views).ServeHTTP(rec, request(http.MethodPost, "/", body, &e.actor, params))
	var saved map[string]any
	decodeData(t, rec, &saved)
	assert.Equal(t, true, saved["saved"])

	stored, err := e.store.GetArtifact(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.CorrectionsSaved)
}

func TestCorrectionsHandler_InvalidBody(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantCategory, complaintsCSV)

	rec := httptest.NewRecorder()
	NewCorrectionsHandler(e.views).ServeHTTP(rec, request(http.MethodPost, "/", []byte("{"), &e.actor,
		map[string]string{"artifactID": a.ID.String()}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, rec))
}

func TestCorrectionsHandler_UnknownRow(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantCategory, complaintsCSV)

	body := []byte(`{"saved":true,"corrections":{"9":["Water"]}}`)
	rec := httptest.NewRecorder()
	NewCorrectionsHandler(e.views).ServeHTTP(rec, request(http.MethodPost, "/", body, &e.actor,
		map[string]string{"artifactID": a.ID.String()}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CORRECTION", errCode(t, rec))
}

// --- word cloud ---

func TestWordCloudHandler(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantSentence, responsesCSV)
	params := map[string]string{"artifactID": a.ID.String()}

	rec := httptest.NewRecorder()
	NewWordCloudHandler(e.views).ServeHTTP(rec,
		request(http.MethodGet, "/?domain=General&category=Roads", nil, &e.actor, params))

	var words []wordfreq.WordCount
	decodeData(t, rec, &words)
	assert.Contains(t, words, wordfreq.WordCount{Word: "roads", Count: 1})
}

func TestWordCloudHandler_CategoryRequired(t *testing.T) {
	actor := models.Actor{Username: "asha"}
	rec := httptest.NewRecorder()
	NewWordCloudHandler(failingViews{}).ServeHTTP(rec,
		request(http.MethodGet, "/?domain=General", nil, &actor, map[string]string{"artifactID": uuid.NewString()}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- export ---

func TestExportHandler_DownloadsWorkbook(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantSentence, responsesCSV)

	rec := httptest.NewRecorder()
	NewExportHandler(e.views).ServeHTTP(rec, request(http.MethodGet, "/", nil, &e.actor,
		map[string]string{"artifactID": a.ID.String()}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("PK"), rec.Body.Bytes()[:2])
}

func TestExportHandler_DownloadsTable(t *testing.T) {
	e := newEnv(t)
	a := e.upload(t, models.VariantCategory, complaintsCSV)

	rec := httptest.NewRecorder()
	NewExportHandler(e.views).ServeHTTP(rec, request(http.MethodGet, "/", nil, &e.actor,
		map[string]string{"artifactID": a.ID.String()}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Predicted_Category")
}
