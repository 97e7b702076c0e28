package mw

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/circadiand/internal/apikey"
	"github.com/jmylchreest/circadiand/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newAuthFixture(t *testing.T) (http.Handler, *apikey.Manager) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), config.DaemonConfigFilename)
	cfg, err := config.Load(config.DaemonConfigFilename, cfgPath)
	require.NoError(t, err)

	mgr := apikey.NewManager(cfg, testLogger())
	handler := APIKeyAuth(testLogger(), mgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return handler, mgr
}

func doRequest(handler http.Handler, setAuth func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil)
	if setAuth != nil {
		setAuth(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	handler, _ := newAuthFixture(t)
	rec := doRequest(handler, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	handler, _ := newAuthFixture(t)
	rec := doRequest(handler, func(r *http.Request) {
		r.Header.Set("X-API-Key", "not-a-real-key")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_BearerHeader(t *testing.T) {
	handler, mgr := newAuthFixture(t)
	key, err := mgr.CreateAPIKey("bearer", 0)
	require.NoError(t, err)

	rec := doRequest(handler, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+key.Key)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_XAPIKeyHeader(t *testing.T) {
	handler, mgr := newAuthFixture(t)
	key, err := mgr.CreateAPIKey("header", 0)
	require.NoError(t, err)

	rec := doRequest(handler, func(r *http.Request) {
		r.Header.Set("X-API-Key", key.Key)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_DisabledKey(t *testing.T) {
	handler, mgr := newAuthFixture(t)
	key, err := mgr.CreateAPIKey("disabled", 0)
	require.NoError(t, err)
	_, err = mgr.SetAPIKeyDisabledStatus("disabled", true)
	require.NoError(t, err)

	rec := doRequest(handler, func(r *http.Request) {
		r.Header.Set("X-API-Key", key.Key)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitByIP_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RateLimitByIP(0)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
