package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/cache"
	"github.com/kiranshivaraju/venter/internal/classifier/mock"
	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/internal/metrics"
	"github.com/kiranshivaraju/venter/internal/store/storetest"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock store ──────────────────────────────────────────────────────────────

type testStore struct {
	*storetest.MemoryStore
	pingErr error
}

func (s *testStore) Ping(_ context.Context) error { return s.pingErr }

func newTestStore(pingErr error) *testStore {
	return &testStore{MemoryStore: storetest.NewMemoryStore(), pingErr: pingErr}
}

// ─── mock cache ──────────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Delete(_ context.Context, _ string) error                          { return nil }
func (c *testCache) Ping(_ context.Context) error                                      { return c.pingErr }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}
func (c *testCache) AcquireLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	return true, nil
}
func (c *testCache) ReleaseLock(_ context.Context, _, _ string) error { return nil }

var _ cache.Cache = (*testCache)(nil)

// ─── health handler tests ───────────────────────────────────────────────────

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(newTestStore(nil), &testCache{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(newTestStore(errors.New("connection refused")), &testCache{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestHealthHandler_CacheDegraded(t *testing.T) {
	h := healthHandler(newTestStore(nil), &testCache{pingErr: errors.New("redis down")})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ─── service wiring ─────────────────────────────────────────────────────────

func TestNewViews_ServesStatistics(t *testing.T) {
	st := newTestStore(nil)
	org := &models.Organisation{ID: uuid.New(), Name: "CIVIS"}
	require.NoError(t, st.CreateOrganisation(context.Background(), org))

	cfg := &config.Config{
		Media:      config.MediaConfig{Root: t.TempDir()},
		Redis:      config.RedisConfig{LockTTL: time.Minute},
		Classifier: config.ClassifierConfig{Timeout: 5 * time.Second, TopK: 3},
	}
	a := &models.Artifact{
		ID: uuid.New(), OrganisationID: org.ID, Organisation: org.Name, Owner: "asha",
		Filename: "survey.csv", UploadedAt: time.Now().UTC(), Variant: models.VariantSentence,
	}
	require.NoError(t, st.CreateArtifact(context.Background(), a))
	layout := artifact.NewLayout(cfg.Media.Root)
	require.NoError(t, artifact.WriteFileAtomic(layout.InputPath(a), []byte("response\nbins\n")))

	views := newViews(cfg, st, &testCache{}, mock.NewMockClassifier(), metrics.New())
	actor := models.Actor{OrganisationID: org.ID, Username: "asha"}

	stats, err := views.Statistics(context.Background(), actor, a.ID, "")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.FileExists(t, layout.ResultJSON(a))
	assert.FileExists(t, layout.ResultXLSX(a))
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CLASSIFIER_PROVIDER", "mock")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
