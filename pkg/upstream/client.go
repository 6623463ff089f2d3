// Package upstream implements the RetryingUpstreamClient (spec.md §4.3):
// one process-wide pooled HTTP client, adaptive per-model timeouts, and
// status-based retry/backoff with forced-refresh-on-403.
//
// Grounded on pkg/http/client.go's HTTPClient (pooled transport,
// calculateDelay exponential backoff, retryable-status checking) and
// pkg/http/backoff.go's BackoffConfig, adapted from a generic
// AI-provider client to the fixed upstream and credential-refresh
// semantics spec.md §4.3 names.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/ratelimit"
)

// TokenSource supplies the bearer token for a request and can be forced
// to refresh. *credential.Manager satisfies this; the interface exists
// so this package does not import credential (avoiding a cycle with
// authcache, which imports both).
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// Config configures the client's pool, retry budget, and adaptive
// timeouts (spec.md §6.5).
type Config struct {
	MaxRetries           int // non-streaming retry budget, default 3
	BaseRetryDelay       time.Duration
	MaxRetryDelay        time.Duration
	FirstTokenTimeout    time.Duration // streaming base timeout, default 60s
	FirstTokenMaxRetries int           // streaming retry budget, default 3
	NonStreamTimeout     time.Duration // default 600s

	SlowModelPatterns   []string // glob patterns matched against model name
	SlowModelMultiplier float64  // default 1.5

	Logger gwlog.Logger
}

func (c *Config) setDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Second
	}
	if c.FirstTokenTimeout <= 0 {
		c.FirstTokenTimeout = 60 * time.Second
	}
	if c.FirstTokenMaxRetries <= 0 {
		c.FirstTokenMaxRetries = 3
	}
	if c.NonStreamTimeout <= 0 {
		c.NonStreamTimeout = 600 * time.Second
	}
	if c.SlowModelMultiplier <= 0 {
		c.SlowModelMultiplier = 1.5
	}
	if c.Logger == nil {
		c.Logger = gwlog.NopLogger{}
	}
}

// Client is the one process-wide RetryingUpstreamClient (spec.md §4.3,
// §5 "Resource policy": "One HTTP client pool for the whole process").
type Client struct {
	http      *http.Client
	cfg       Config
	rlParser  *ratelimit.AnthropicParser
	rlTracker *ratelimit.Tracker
}

// New builds a Client with a pooled transport (max 100 connections, 20
// per-host keep-alive, 60s idle timeout, per spec.md §4.3).
func New(cfg Config) *Client {
	cfg.setDefaults()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     60 * time.Second,
	}

	return &Client{
		http:      &http.Client{Transport: transport},
		cfg:       cfg,
		rlParser:  ratelimit.NewAnthropicParser(),
		rlTracker: ratelimit.NewTracker(),
	}
}

// rateLimitWarnThreshold is the usage ratio (of the lowest remaining
// dimension reported by the last response) at which logRateLimitHeaders
// escalates from a debug line to a warning, giving operators a signal
// before the upstream itself starts returning 429s.
const rateLimitWarnThreshold = 0.9

// logRateLimitHeaders parses any anthropic-ratelimit-* headers the
// CodeWhisperer upstream forwards from the underlying Claude model,
// records them in the per-model Tracker, and logs them at debug level
// (or warn, once the model crosses rateLimitWarnThreshold). Most
// responses carry none of these headers; ParseAndValidate's "no data
// found" case is treated as a no-op, not a failure, since absence of the
// headers on this upstream is the common case, not an error.
func (c *Client) logRateLimitHeaders(resp *http.Response, model string) {
	info, err := c.rlParser.ParseAndValidate(resp.Header, model)
	if err != nil {
		return
	}
	c.rlTracker.Update(info)

	fields := []any{
		"model", model,
		"requests_remaining", info.RequestsRemaining,
		"tokens_remaining", info.TokensRemaining,
		"request_id", info.RequestID,
	}
	if c.rlTracker.ShouldThrottle(model, rateLimitWarnThreshold) {
		c.cfg.Logger.Warn("upstream rate limit nearing exhaustion", fields...)
		return
	}
	c.cfg.Logger.Debug("upstream rate limit headers", fields...)
}

// Options parameterizes one request_with_retry call.
type Options struct {
	Stream bool
	Model  string
	Tokens TokenSource
	// Headers are additional request headers beyond Authorization and
	// Content-Type, e.g. User-Agent.
	Headers http.Header
}

// RequestWithRetry implements spec.md §4.3's request_with_retry: computes
// the per-attempt timeout, attaches the current access token, and
// retries on 403 (forced refresh, no backoff, does not count against the
// retry budget), 429/5xx (backoff then retry), timeouts (backoff for
// non-streaming, immediate retry for streaming), and other transport
// errors (backoff then retry). On budget exhaustion it returns a *gwerrors.Error of kind
// UpstreamTransient; HTTPStatus(kind, opts.Stream) yields 504 or 502 as
// spec.md §4.3/§7 require.
func (c *Client) RequestWithRetry(ctx context.Context, method, url string, body []byte, opts Options) (*http.Response, error) {
	maxAttempts := c.cfg.MaxRetries
	if opts.Stream {
		maxAttempts = c.cfg.FirstTokenMaxRetries
	}

	timeout := c.timeoutFor(opts)
	forcedRefresh := false

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := opts.Tokens.GetAccessToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.doAttempt(ctx, method, url, body, token, timeout, opts.Headers)
		if err != nil {
			lastErr = err
			if isTimeout(err) && !opts.Stream {
				if !c.wait(ctx, attempt) {
					return nil, ctx.Err()
				}
				continue
			}
			if isTimeout(err) && opts.Stream {
				continue // streaming: retry immediately, no backoff
			}
			// transport error: backoff + retry
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusForbidden && !forcedRefresh {
			forcedRefresh = true
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if _, rerr := opts.Tokens.ForceRefresh(ctx); rerr != nil {
				return nil, rerr
			}
			attempt-- // the 403 attempt does not count against the budget
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.logRateLimitHeaders(resp, opts.Model)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = gwerrors.Newf(gwerrors.UpstreamTransient, "upstream returned %d", resp.StatusCode).WithStatus(resp.StatusCode)
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		c.logRateLimitHeaders(resp, opts.Model)
		return resp, nil
	}

	if lastErr == nil {
		lastErr = errors.New("retry budget exhausted")
	}
	return nil, gwerrors.Wrap(gwerrors.UpstreamTransient, lastErr, "retry budget exhausted")
}

func (c *Client) doAttempt(ctx context.Context, method, url string, body []byte, token string, timeout time.Duration, extraHeaders http.Header) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(attemptCtx, method, url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range extraHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	// cancel is intentionally not deferred: the caller owns resp.Body and
	// must be able to stream it past this function's return. Wrapping the
	// body ties cancel's lifetime to the body's close instead.
	resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// timeoutFor computes the per-attempt timeout: the streaming or
// non-streaming base, times the adaptive multiplier if opts.Model
// matches one of the configured slow-model patterns (spec.md §4.3).
func (c *Client) timeoutFor(opts Options) time.Duration {
	base := c.cfg.NonStreamTimeout
	if opts.Stream {
		base = c.cfg.FirstTokenTimeout
	}

	if opts.Model == "" || !c.isSlowModel(opts.Model) {
		return base
	}

	return time.Duration(float64(base) * c.cfg.SlowModelMultiplier)
}

func (c *Client) isSlowModel(model string) bool {
	for _, pattern := range c.cfg.SlowModelPatterns {
		if ok, _ := filepath.Match(pattern, model); ok {
			return true
		}
		if strings.Contains(strings.ToLower(model), strings.ToLower(strings.Trim(pattern, "*"))) {
			return true
		}
	}
	return false
}

func (c *Client) wait(ctx context.Context, attempt int) bool {
	delay := calculateBackoff(c.cfg.BaseRetryDelay, c.cfg.MaxRetryDelay, attempt)
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// calculateBackoff mirrors pkg/http/client.go's RetryHandler.calculateDelay:
// exponential growth from BaseRetryDelay, capped at MaxRetryDelay.
func calculateBackoff(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := base * time.Duration(int64(1)<<uint(attempt))
	if delay > max {
		delay = max
	}
	return delay
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
