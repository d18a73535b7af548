package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"companywise/internal/datasource"
	apierrors "companywise/internal/errors"
	"companywise/internal/middleware"
	"companywise/internal/problems"
	"companywise/internal/security"
	"companywise/internal/services"
	"companywise/internal/shared/testutil"
	"companywise/internal/storage"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

// testAPI is the JSON API wired to a fixture data directory and an
// in-memory store.
type testAPI struct {
	server   *httptest.Server
	tokens   *security.TokenIssuer
	store    *storage.MemoryStore
	progress *services.ProgressService
}

func newTestAPI(t *testing.T, migrateOnSignIn bool) *testAPI {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteCompany(t, dir, "Google", map[string]string{
		problems.ThirtyDays.FileName: testutil.SampleTable,
	})
	testutil.WriteCompany(t, dir, "Jane Street", map[string]string{
		problems.ThirtyDays.FileName: testutil.SampleTable,
	})
	testutil.WriteCompany(t, dir, "Broken", map[string]string{
		problems.ThirtyDays.FileName: "Difficulty,Title\n",
	})

	logger, _ := testutil.NewTestLogger(t)
	store := storage.NewMemoryStore()
	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, "companywise-test")
	require.NoError(t, err)

	catalog := services.NewCatalogService(datasource.NewFileSource(dir), nil, logger)
	prog := services.NewProgressService(store, services.ProgressOptions{
		Location: time.UTC,
		Clock:    func() time.Time { return testNow },
		Logger:   logger,
	})
	export := services.NewExportService(catalog, prog, nil)
	auth := services.NewAuthService(tokens, prog, migrateOnSignIn, logger)
	eh := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.IdentityMiddleware(logger, tokens))
	r.Route("/api", func(r chi.Router) {
		r.Mount("/", NewCatalogHandler(catalog, prog, export, logger, eh).Routes())
		r.Mount("/progress", NewProgressHandler(prog, logger, eh).Routes())
		r.Mount("/auth", NewAuthHandler(auth, logger, eh).Routes())
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{server: srv, tokens: tokens, store: store, progress: prog}
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login signs in profile and returns its token.
func (a *testAPI) login(t *testing.T, body string) string {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Data services.LoginResult `json:"data"`
	}
	decode(t, resp, &out)
	return out.Data.Token
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type problemBody struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}
