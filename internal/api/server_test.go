package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkin1995/healthkit/internal/cache"
	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/health"
	"github.com/kkin1995/healthkit/internal/jobs"
	"github.com/kkin1995/healthkit/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(context.Background(), filepath.Join(t.TempDir(), "healthkit.db"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	day := time.Date(2023, 11, 4, 8, 0, 0, 0, time.UTC)
	v := 523.0
	_, err = st.InsertRecords(context.Background(), []export.Record{
		{
			Type:         "HKQuantityTypeIdentifierStepCount",
			SourceName:   "iPhone",
			Unit:         "count",
			Value:        "523",
			NumericValue: &v,
			StartDate:    day,
			EndDate:      day.Add(10 * time.Minute),
		},
	})
	require.NoError(t, err)
	return st
}

func testServer(t *testing.T, cfg Config, importFn ImportFunc) *Server {
	t.Helper()
	if importFn == nil {
		importFn = func(context.Context) (*jobs.Status, error) {
			return &jobs.Status{ID: "test", LastRun: time.Now(), Records: 1}, nil
		}
	}
	return NewServer(cfg, testStore(t), cache.NewMemoryCache(0), health.NewManager("test"), importFn)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleStatus(t *testing.T) {
	s := testServer(t, Config{Version: "1.2.3"}, nil)
	rec := get(t, s.Router(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1.2.3", body["version"])
	assert.EqualValues(t, 1, body["stored_records"])
}

func TestHandleTypes(t *testing.T) {
	s := testServer(t, Config{}, nil)
	router := s.Router()

	rec := get(t, router, "/api/types?kind=Quantity")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Types []store.TypeCount `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Types, 1)
	assert.Equal(t, "StepCount", body.Types[0].Type)

	rec = get(t, router, "/api/types?kind=Workout")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown kind")
}

func TestHandleRecords(t *testing.T) {
	s := testServer(t, Config{}, nil)
	router := s.Router()

	rec := get(t, router, "/api/records?type=StepCount")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Records []store.StoredRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Records, 1)

	rec = get(t, router, "/api/records")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, router, "/api/records?type=HeartRate")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, router, "/api/records?type=StepCount&from=notadate")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, router, "/api/records?type=StepCount&from=2023-11-05&to=2023-11-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDailyUsesCache(t *testing.T) {
	s := testServer(t, Config{}, nil)
	router := s.Router()

	rec := get(t, router, "/api/stats/daily?type=StepCount")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/api/stats/daily?type=StepCount")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, s.cache.Stats().Hits, int64(1))
}

func TestHandleWorkoutsEmpty(t *testing.T) {
	s := testServer(t, Config{}, nil)
	rec := get(t, s.Router(), "/api/workouts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"workouts":[]}`, rec.Body.String())
}

func TestHandleImport(t *testing.T) {
	s := testServer(t, Config{}, nil)
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status jobs.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Records)

	lastRun, lastErr := s.LastImport()
	assert.False(t, lastRun.IsZero())
	assert.Empty(t, lastErr)
}

func TestHandleImportConflict(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := testServer(t, Config{}, func(context.Context) (*jobs.Status, error) {
		close(started)
		<-release
		return &jobs.Status{LastRun: time.Now()}, nil
	})
	router := s.Router()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))
	}()

	<-started
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	close(release)
	wg.Wait()
}

func TestImportAuth(t *testing.T) {
	s := testServer(t, Config{Token: "secret"}, nil)
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Read endpoints stay open.
	rec = get(t, router, "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := testServer(t, Config{}, nil)
	router := s.Router()

	assert.Equal(t, http.StatusOK, get(t, router, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := testServer(t, Config{}, nil)
	rec := get(t, s.Router(), "/api/status")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
