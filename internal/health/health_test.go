package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name   string
	result CheckResult
}

func (c stubChecker) Name() string                      { return c.name }
func (c stubChecker) Check(context.Context) CheckResult { return c.result }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthAlwaysHealthyWithoutVerbose(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(stubChecker{name: "store", result: CheckResult{Status: StatusUnhealthy}})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestHealthVerboseAggregates(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(stubChecker{name: "a", result: CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(stubChecker{name: "b", result: CheckResult{Status: StatusDegraded}})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReadyFalseOnUnhealthy(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(stubChecker{name: "store", result: CheckResult{Status: StatusUnhealthy, Error: "down"}})

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReadyStatusCodes(t *testing.T) {
	m := NewManager("1.0.0")

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, 200, rec.Code)

	m.RegisterChecker(stubChecker{name: "store", result: CheckResult{Status: StatusUnhealthy}})
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, 503, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}

func TestServeHealthAlways200(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(stubChecker{name: "store", result: CheckResult{Status: StatusUnhealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz?verbose=true", nil))
	assert.Equal(t, 200, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestStoreChecker(t *testing.T) {
	ok := NewStoreChecker(stubPinger{}).Check(context.Background())
	assert.Equal(t, StatusHealthy, ok.Status)

	bad := NewStoreChecker(stubPinger{err: errors.New("locked")}).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, bad.Status)
	assert.Equal(t, "locked", bad.Error)
}

func TestExportFileChecker(t *testing.T) {
	dir := t.TempDir()

	missing := NewExportFileChecker(filepath.Join(dir, "export.xml")).Check(context.Background())
	assert.Equal(t, StatusDegraded, missing.Status)

	empty := filepath.Join(dir, "empty.xml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.Equal(t, StatusDegraded, NewExportFileChecker(empty).Check(context.Background()).Status)

	full := filepath.Join(dir, "export2.xml")
	require.NoError(t, os.WriteFile(full, []byte("<HealthData/>"), 0o600))
	assert.Equal(t, StatusHealthy, NewExportFileChecker(full).Check(context.Background()).Status)
}

func TestLastImportChecker(t *testing.T) {
	never := NewLastImportChecker(func() (time.Time, string) { return time.Time{}, "" })
	assert.Equal(t, StatusDegraded, never.Check(context.Background()).Status)

	failed := NewLastImportChecker(func() (time.Time, string) { return time.Now(), "parse error" })
	assert.Equal(t, StatusUnhealthy, failed.Check(context.Background()).Status)

	good := NewLastImportChecker(func() (time.Time, string) { return time.Now(), "" })
	assert.Equal(t, StatusHealthy, good.Check(context.Background()).Status)
}
