package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwconfig"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/upstream"
)

func testDeps(t *testing.T) *Dependencies {
	t.Helper()
	cfg := gwconfig.Defaults()
	cfg.ProxyAPIKey = "proxy123"
	cfg.RefreshToken = "rt-default"
	cfg.Region = "us-east-1"
	return NewDependencies(cfg, gwlog.NopLogger{}, nil, nil, upstream.New(upstream.Config{}), nil)
}

func TestRouter_HealthzIsPublic(t *testing.T) {
	d := testDeps(t)
	h := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_VersionIsPublic(t *testing.T) {
	d := testDeps(t)
	h := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ModelsRequiresKey(t *testing.T) {
	d := testDeps(t)
	h := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ModelsWithValidKey(t *testing.T) {
	d := testDeps(t)
	h := NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer proxy123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "claude-sonnet-4-5")
}

func TestRouter_ChatCompletionsRejectsBadKey(t *testing.T) {
	d := testDeps(t)
	h := NewRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
