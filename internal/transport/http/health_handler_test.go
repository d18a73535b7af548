package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/datasource"
	"companywise/internal/problems"
	"companywise/internal/services"
	"companywise/internal/shared/testutil"
	"companywise/internal/storage"
)

func newHealthRouter(t *testing.T, dataDir string) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewHealthService("1.2.3", "", services.HealthDeps{
		Source: datasource.NewFileSource(dataDir),
		Store:  storage.NewMemoryStore(),
	}, logger)
	h := NewHealthHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/health/ready", h.ReadinessCheck)
	r.Get("/health/live", h.LivenessCheck)
	r.Get("/health/detailed", h.Detailed)
	r.Get("/version", h.Version)
	return r
}

func TestHealthHandler(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCompany(t, dir, "Google", map[string]string{problems.ThirtyDays.FileName: testutil.SampleTable})
	router := newHealthRouter(t, dir)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"ok"`},
		{"/health/ready", http.StatusOK, `"ready"`},
		{"/health/live", http.StatusOK, `"alive"`},
		{"/health/detailed", http.StatusOK, `"readiness"`},
		{"/version", http.StatusOK, `"1.2.3"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestHealthHandler_NotReadyWithoutData(t *testing.T) {
	router := newHealthRouter(t, t.TempDir())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_ready"`)
}

type staticStats map[string]interface{}

func (s staticStats) Stats() map[string]interface{} { return s }

func TestMetricsHandler(t *testing.T) {
	prom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP companywise_up\n"))
	})
	h := NewMetricsHandler(prom, map[string]StatsSource{
		"websocket": staticStats{"active_clients": 2},
	})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companywise_up")

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"websocket":{"active_clients":2}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewMetricsHandler(nil, nil).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
