package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/scmdesk/scmdesk/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 10*time.Minute, cfg.CacheTTL)
	require.Equal(t, "0 2 * * *", cfg.ReconcileCron)
	require.False(t, cfg.InventoryAllowNegative)
	require.False(t, cfg.IsProduction())
	require.Equal(t, language.AmericanEnglish, cfg.LanguageTag())
}

func TestLoadConfigReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXPORT_RATE_LIMIT=3\nAPP_ADDR=:9999\n"), 0o600))
	t.Setenv("APP_ADDR", ":7000")
	t.Cleanup(func() { _ = os.Unsetenv("EXPORT_RATE_LIMIT") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.ExportRateLimit)
	require.Equal(t, ":7000", cfg.AppAddr)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")

	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("LOCALE", "not a tag")
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "LOCALE")
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:  &Config{RateLimitPerMinute: 60},
		Metrics: observability.NewMetrics(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "scm_http_requests_total")
}

func TestAPIRateLimitedPerClient(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &Config{RateLimitPerMinute: 2},
	})
	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.9:4321"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNotFound, do("/api/nothing"))
	require.Equal(t, http.StatusNotFound, do("/api/nothing"))
	require.Equal(t, http.StatusTooManyRequests, do("/api/nothing"))
	require.Equal(t, http.StatusOK, do("/healthz"), "health checks are not rate limited")
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
