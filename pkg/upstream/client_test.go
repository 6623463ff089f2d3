package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
)

type fakeTokens struct {
	token         string
	forceRefresh  int32
	forceRefreshN func() string
}

func (f *fakeTokens) GetAccessToken(ctx context.Context) (string, error) { return f.token, nil }
func (f *fakeTokens) ForceRefresh(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.forceRefresh, 1)
	if f.forceRefreshN != nil {
		f.token = f.forceRefreshN()
	}
	return f.token, nil
}

func TestRequestWithRetry_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseRetryDelay: time.Millisecond, MaxRetryDelay: 5 * time.Millisecond})
	resp, err := c.RequestWithRetry(context.Background(), http.MethodPost, srv.URL, nil, Options{Tokens: &fakeTokens{token: "tok"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestWithRetry_ForcesRefreshOn403ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok-1", forceRefreshN: func() string { return "tok-2" }}
	c := New(Config{BaseRetryDelay: time.Millisecond, MaxRetryDelay: 5 * time.Millisecond})
	resp, err := c.RequestWithRetry(context.Background(), http.MethodPost, srv.URL, nil, Options{Tokens: tokens})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokens.forceRefresh))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRequestWithRetry_BackoffOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseRetryDelay: time.Millisecond, MaxRetryDelay: 5 * time.Millisecond, MaxRetries: 5})
	resp, err := c.RequestWithRetry(context.Background(), http.MethodPost, srv.URL, nil, Options{Tokens: &fakeTokens{token: "tok"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRequestWithRetry_ExhaustionReturnsUpstreamTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseRetryDelay: time.Millisecond, MaxRetryDelay: 2 * time.Millisecond, MaxRetries: 2})
	_, err := c.RequestWithRetry(context.Background(), http.MethodPost, srv.URL, nil, Options{Tokens: &fakeTokens{token: "tok"}})
	require.Error(t, err)
	kind, ok := gwerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.UpstreamTransient, kind)
}

func TestTimeoutFor_AppliesSlowModelMultiplier(t *testing.T) {
	c := New(Config{
		FirstTokenTimeout:   10 * time.Second,
		NonStreamTimeout:    100 * time.Second,
		SlowModelPatterns:   []string{"*opus*"},
		SlowModelMultiplier: 2.0,
	})

	assert.Equal(t, 10*time.Second, c.timeoutFor(Options{Stream: true, Model: "claude-haiku"}))
	assert.Equal(t, 20*time.Second, c.timeoutFor(Options{Stream: true, Model: "claude-opus-4"}))
	assert.Equal(t, 200*time.Second, c.timeoutFor(Options{Stream: false, Model: "claude-3-opus"}))
}

func TestRequestWithRetry_BodyIsReadableAfterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(Config{BaseRetryDelay: time.Millisecond})
	resp, err := c.RequestWithRetry(context.Background(), http.MethodGet, srv.URL, nil, Options{Tokens: &fakeTokens{token: "tok"}})
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "hello", string(data))
}
