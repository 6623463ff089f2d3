package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
)

func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	h := RequestID(testHandler(http.StatusOK, "ok"))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_PropagatesExisting(t *testing.T) {
	h := RequestID(testHandler(http.StatusOK, "ok"))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestCORS_SetsAllowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}})(testHandler(http.StatusOK, "ok"))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"POST"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
	)
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecovery_CatchesPanic(t *testing.T) {
	h := Recovery(gwlog.NopLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	h := RateLimit(0)(testHandler(http.StatusOK, "ok"))
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestParseAPIKey_BareProxyKey(t *testing.T) {
	rk, err := ParseAPIKey("proxy123", "proxy123")
	require.NoError(t, err)
	assert.Equal(t, KeyModeProxy, rk.Mode)
}

func TestParseAPIKey_ProxyKeyWithRefreshToken(t *testing.T) {
	rk, err := ParseAPIKey("proxy123:rt-abc", "proxy123")
	require.NoError(t, err)
	assert.Equal(t, KeyModeProxyWithRefreshToken, rk.Mode)
	assert.Equal(t, "rt-abc", rk.RefreshToken)
}

func TestParseAPIKey_UserKey(t *testing.T) {
	rk, err := ParseAPIKey("sk-deadbeef", "proxy123")
	require.NoError(t, err)
	assert.Equal(t, KeyModeUserKey, rk.Mode)
	assert.Equal(t, "sk-deadbeef", rk.UserKey)
}

func TestParseAPIKey_Unrecognized(t *testing.T) {
	_, err := ParseAPIKey("garbage", "proxy123")
	assert.Error(t, err)
}

func TestParseAPIKey_Empty(t *testing.T) {
	_, err := ParseAPIKey("", "proxy123")
	assert.Error(t, err)
}

func TestAuth_PublicPathBypassesResolution(t *testing.T) {
	h := Auth(AuthConfig{ProxyKey: "proxy123", PublicPaths: []string{"/healthz"}})(testHandler(http.StatusOK, "ok"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RejectsBadKey(t *testing.T) {
	h := Auth(AuthConfig{ProxyKey: "proxy123"})(testHandler(http.StatusOK, "ok"))
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("x-api-key", "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_StashesResolvedKeyInContext(t *testing.T) {
	var got ResolvedKey
	var ok bool
	h := Auth(AuthConfig{ProxyKey: "proxy123"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetResolvedKey(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("x-api-key", "proxy123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.True(t, ok)
	assert.Equal(t, KeyModeProxy, got.Mode)
}

func TestRateLimit_RejectsBurstAboveLimit(t *testing.T) {
	h := RateLimit(1)(testHandler(http.StatusOK, "ok"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("x-api-key", "k1")

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req)
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
