package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/progress"
	"companywise/internal/services"
)

func TestProgressHandler_GetEvaluatesStreak(t *testing.T) {
	api := newTestAPI(t, false)

	resp := api.do(t, http.MethodGet, "/api/progress", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data progress.State `json:"data"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Data.StreakCount)
	require.NotNil(t, out.Data.LastVisitDate)
	assert.Equal(t, "2026-03-10", *out.Data.LastVisitDate)
	assert.Empty(t, out.Data.CompletedTitles)
}

func TestProgressHandler_Toggle(t *testing.T) {
	api := newTestAPI(t, false)
	token := api.login(t, "")

	var out struct {
		Data services.ToggleResult `json:"data"`
	}

	resp := api.do(t, http.MethodPost, "/api/progress/toggle", token, `{"title":"Two Sum"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &out)
	assert.True(t, out.Data.Completed)
	assert.Equal(t, []string{"Two Sum"}, out.Data.State.CompletedTitles)
	assert.Equal(t, []string{"2026-03-10"}, out.Data.State.PracticeDates)

	resp = api.do(t, http.MethodPost, "/api/progress/toggle", token, `{"title":"Two Sum"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &out)
	assert.False(t, out.Data.Completed)
	assert.Empty(t, out.Data.State.CompletedTitles)
	assert.Equal(t, []string{"2026-03-10"}, out.Data.State.PracticeDates, "un-completing keeps practice dates")
}

func TestProgressHandler_ToggleRejectsBadInput(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{}`},
		{"empty title", `{"title":""}`},
		{"unknown field", `{"title":"Two Sum","extra":1}`},
		{"malformed json", `{"title":`},
		{"script", `{"title":"<script>alert(1)</script>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(t, http.MethodPost, "/api/progress/toggle", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestProgressHandler_IdentitiesAreIsolated(t *testing.T) {
	api := newTestAPI(t, false)
	ada := api.login(t, `{"name":"Ada","email":"ada@example.com"}`)
	bob := api.login(t, `{"name":"Bob","email":"bob@example.com"}`)

	resp := api.do(t, http.MethodPost, "/api/progress/toggle", ada, `{"title":"LRU Cache"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data progress.State `json:"data"`
	}
	resp = api.do(t, http.MethodGet, "/api/progress", bob, "")
	decode(t, resp, &out)
	assert.Empty(t, out.Data.CompletedTitles)

	resp = api.do(t, http.MethodGet, "/api/progress", ada, "")
	decode(t, resp, &out)
	assert.Equal(t, []string{"LRU Cache"}, out.Data.CompletedTitles)
}

func TestProgressHandler_Calendar(t *testing.T) {
	api := newTestAPI(t, false)

	resp := api.do(t, http.MethodPost, "/api/progress/toggle", "", `{"title":"Two Sum"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/progress/calendar?month=2026-03", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data progress.Calendar `json:"data"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 2026, out.Data.Year)
	assert.Len(t, out.Data.Days, 31)
	assert.Equal(t, 1, out.Data.PracticedDays)
	assert.True(t, out.Data.Days[9].Practiced)
	assert.True(t, out.Data.Days[9].Today)

	resp = api.do(t, http.MethodGet, "/api/progress/calendar?month=March", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressHandler_Migrate(t *testing.T) {
	api := newTestAPI(t, false)

	resp := api.do(t, http.MethodPost, "/api/progress/toggle", "", `{"title":"Two Sum"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("anonymous caller", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/api/progress/migrate", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("signed in caller", func(t *testing.T) {
		token := api.login(t, "")

		var before struct {
			Data progress.State `json:"data"`
		}
		resp := api.do(t, http.MethodGet, "/api/progress", token, "")
		decode(t, resp, &before)
		assert.Empty(t, before.Data.CompletedTitles, "sign-in does not merge by default")

		resp = api.do(t, http.MethodPost, "/api/progress/migrate", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Data services.MigrationResult `json:"data"`
		}
		decode(t, resp, &out)
		assert.True(t, out.Data.Merged)
		assert.Equal(t, []string{"Two Sum"}, out.Data.State.CompletedTitles)
	})
}
