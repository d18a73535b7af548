package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/security"
	"companywise/internal/services"
)

func TestAuthHandler_Login(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name     string
		body     string
		status   int
		identity string
	}{
		{"demo profile", "", http.StatusOK, security.DemoProfile.Identity()},
		{"explicit profile", `{"name":"Ada","email":"Ada@Example.com"}`, http.StatusOK, "ada@example.com"},
		{"invalid email", `{"name":"Ada","email":"not-an-email"}`, http.StatusBadRequest, ""},
		{"missing name", `{"email":"ada@example.com"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}

			var out struct {
				Data services.LoginResult `json:"data"`
			}
			decode(t, resp, &out)
			assert.NotEmpty(t, out.Data.Token)
			assert.Equal(t, tt.identity, out.Data.Identity)

			claims, err := api.tokens.Validate(out.Data.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.identity, claims.Subject)
		})
	}
}

func TestAuthHandler_LoginMigratesWhenEnabled(t *testing.T) {
	api := newTestAPI(t, true)

	resp := api.do(t, http.MethodPost, "/api/progress/toggle", "", `{"title":"Two Sum"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/auth/login", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Data services.LoginResult `json:"data"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Data.Migrated)
	assert.Equal(t, []string{"Two Sum"}, out.Data.Progress.CompletedTitles)
}

func TestAuthHandler_LogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t, false)
	token := api.login(t, "")

	resp := api.do(t, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Data struct {
			Anonymous bool   `json:"anonymous"`
			Identity  string `json:"identity"`
		} `json:"data"`
	}
	decode(t, resp, &me)
	assert.False(t, me.Data.Anonymous)
	assert.Equal(t, security.DemoProfile.Identity(), me.Data.Identity)

	resp = api.do(t, http.MethodPost, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/progress", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_LogoutRequiresToken(t *testing.T) {
	api := newTestAPI(t, false)

	resp := api.do(t, http.MethodPost, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/auth/me", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Data struct {
			Anonymous bool `json:"anonymous"`
		} `json:"data"`
	}
	decode(t, resp, &me)
	assert.True(t, me.Data.Anonymous)
}
