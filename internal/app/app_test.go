package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/config"
	"companywise/internal/datasource"
	"companywise/internal/problems"
	"companywise/internal/shared/testutil"
	"companywise/internal/storage"
	ws "companywise/internal/websocket"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	data := filepath.Join(base, "data")
	testutil.WriteCompany(t, data, "Google", map[string]string{
		problems.ThirtyDays.FileName: testutil.SampleTable,
	})
	testutil.WriteCompanyIndex(t, data, []string{"Google"})

	cfg := config.Default()
	cfg.Paths.BaseDir = base
	cfg.Data.Source = config.SourceLocal
	cfg.Data.Dir = "data"
	cfg.Storage.Backend = config.StorageMemory
	cfg.Auth.JWTSecret = "0123456789abcdef-test"
	cfg.Server.Port = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestNew_WiresServices(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	require.NotNil(t, a.Services)
	assert.NotNil(t, a.Services.Catalog)
	assert.NotNil(t, a.Services.Progress)
	assert.NotNil(t, a.Services.Export)
	assert.NotNil(t, a.Services.Auth)
	assert.NotNil(t, a.Services.Health)
	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Tokens)

	require.NotNil(t, a.Cache, "default config caches the data source")
	assert.Same(t, a.Cache, a.Source)
	assert.DirExists(t, a.Paths.ExportsDir)
}

func TestNew_FailsOnUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "floppy"

	logger, _ := testutil.NewTestLogger(t)
	_, err := New(context.Background(), cfg, logger)
	assert.Error(t, err)
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Count  int             `json:"count"`
}

func request(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := request(t, srv, http.MethodPost, "/api/auth/login", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestRouter_EndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/api/health", "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("companies", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/api/companies", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.JSONEq(t, `["Google"]`, string(env.Data))
		assert.Equal(t, 1, env.Count)
	})

	t.Run("toggle then view", func(t *testing.T) {
		token := login(t, srv)

		resp := request(t, srv, http.MethodPost, "/api/progress/toggle", token, `{"title":"Two Sum"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = request(t, srv, http.MethodGet, "/api/companies/Google/problems?difficulty=easy", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		var out struct {
			Records []struct {
				Title     string `json:"title"`
				Completed bool   `json:"completed"`
			} `json:"records"`
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.Len(t, out.Records, 1)
		assert.Equal(t, "Two Sum", out.Records[0].Title)
		assert.True(t, out.Records[0].Completed)
		assert.Equal(t, 3, out.Total)
	})

	t.Run("invalid json body", func(t *testing.T) {
		resp := request(t, srv, http.MethodPost, "/api/progress/toggle", "", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/api/progress", "not-a-token", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/api/nope/nope", "", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("prometheus", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/metrics", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var sb strings.Builder
		_, err := sb.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, sb.String(), "go_goroutines")
	})

	t.Run("stats", func(t *testing.T) {
		resp := request(t, srv, http.MethodGet, "/metrics/stats", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.Contains(t, string(env.Data), `"websocket"`)
		assert.Contains(t, string(env.Data), `"cache"`)
	})
}

func TestRouter_WebSocketReceivesProgress(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	token := login(t, srv)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello ws.Message
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, ws.TypeConnection, hello.Type)

	resp := request(t, srv, http.MethodPost, "/api/progress/toggle", token, `{"title":"LRU Cache"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeProgressUpdated, msg.Type)
	assert.Contains(t, mustJSON(t, msg.Data), "LRU Cache")
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestBuildSource(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	tests := []struct {
		name     string
		source   string
		withDir  bool
		cacheTTL time.Duration
		check    func(t *testing.T, src datasource.Source)
	}{
		{"local", config.SourceLocal, true, 0, func(t *testing.T, src datasource.Source) {
			assert.IsType(t, &datasource.FileSource{}, src)
		}},
		{"remote", config.SourceRemote, true, 0, func(t *testing.T, src datasource.Source) {
			assert.IsType(t, &datasource.GitHubSource{}, src)
		}},
		{"auto with local data", config.SourceAuto, true, 0, func(t *testing.T, src datasource.Source) {
			assert.IsType(t, &datasource.FallbackSource{}, src)
		}},
		{"auto without local data", config.SourceAuto, false, 0, func(t *testing.T, src datasource.Source) {
			assert.IsType(t, &datasource.GitHubSource{}, src)
		}},
		{"cached", config.SourceLocal, true, time.Minute, func(t *testing.T, src datasource.Source) {
			assert.IsType(t, &datasource.CachedSource{}, src)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Data.Source = tt.source
			cfg.Data.CacheTTL = tt.cacheTTL

			dir := filepath.Join(t.TempDir(), "data")
			if tt.withDir {
				require.NoError(t, os.MkdirAll(dir, 0755))
			}

			src, cache := BuildSource(cfg, &config.Paths{DataDir: dir}, logger)
			tt.check(t, src)
			assert.Equal(t, tt.cacheTTL > 0, cache != nil)
		})
	}
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    interface{}
	}{
		{"memory", config.StorageMemory, &storage.MemoryStore{}},
		{"file", config.StorageFile, &storage.FileStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Backend = tt.backend

			store, err := OpenStore(context.Background(), cfg, &config.Paths{StoreDir: t.TempDir()})
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestPerformStartupHealthCheck(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	err := a.performStartupHealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web page not found")

	require.NoError(t, os.MkdirAll(a.Paths.WebDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(a.Paths.WebDir, "index.html"), []byte("<html></html>"), 0644))
	assert.NoError(t, a.performStartupHealthCheck(context.Background()))
}

func TestAllowedOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.EnableCORS = false
	a := newTestApp(t, cfg)
	assert.Nil(t, a.allowedOrigins())

	a.Config.Security.EnableCORS = true
	a.Config.Security.AllowedOrigins = []string{"http://localhost:3000"}
	assert.Equal(t, []string{"http://localhost:3000"}, a.corsConfig().AllowedOrigins)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(context.Background(), testConfig(t), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
