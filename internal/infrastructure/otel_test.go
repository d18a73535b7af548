package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestOTelInitializationDefaults(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.TracerProvider, "tracing is off by default")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.PrometheusHTTP)

	body := scrape(t, providers.PrometheusHTTP)
	assert.Contains(t, body, "go_goroutines")
}

func TestOTelTracingToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = false
	cfg.TraceWriter = &buf

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	ctx, span := providers.Tracer.Start(context.Background(), "load-table")
	assert.NotEmpty(t, GetTraceID(ctx))
	RecordError(ctx, assert.AnError)
	span.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, providers.Shutdown(shutdownCtx))

	assert.Contains(t, buf.String(), "load-table")
}

func TestBusinessMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordDataLoad(ctx, m, "google", "thirty-days", 20*time.Millisecond, 40, 2, nil)
	RecordDataLoad(ctx, m, "google", "all", time.Millisecond, 0, 0, assert.AnError)
	RecordCacheLookup(ctx, m, true)
	RecordToggle(ctx, m, true, false)
	RecordStreakChange(ctx, m, "increment")
	RecordPersistFailure(ctx, m, assert.AnError)
	RecordMigration(ctx, m, true)
	RecordWebSocketConnection(ctx, m, 1)
	RecordWebSocketMessage(ctx, m, "progress:updated")

	body := scrape(t, providers.PrometheusHTTP)
	for _, name := range []string{
		"data_loads_total",
		"data_rows_parsed_total",
		"data_rows_dropped_total",
		"data_cache_requests_total",
		"progress_toggles_total",
		"progress_streak_changes_total",
		"progress_persist_failures_total",
		"progress_migrations_total",
		"websocket_messages_total",
	} {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, `outcome="failure"`)
}

func TestRecordHelpersTolerateNilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordDataLoad(ctx, nil, "a", "b", 0, 0, 0, nil)
		RecordCacheLookup(ctx, nil, false)
		RecordToggle(ctx, nil, false, true)
		RecordStreakChange(ctx, nil, "reset")
		RecordPersistFailure(ctx, nil, assert.AnError)
		RecordMigration(ctx, nil, false)
		RecordWebSocketConnection(ctx, nil, -1)
		RecordWebSocketMessage(ctx, nil, "x")
		RecordError(ctx, assert.AnError)
	})
}
