// Package ratelimit parses and tracks rate limit information surfaced in
// upstream response headers. The gateway has exactly one upstream
// dialect (the Claude models behind CodeWhisperer), so only the
// Anthropic header shape survives from the teacher's multi-provider
// set; pkg/upstream uses AnthropicParser to read anthropic-ratelimit-*
// headers when the upstream forwards them, and feeds the result into a
// Tracker so repeated calls against a near-exhausted model can be
// flagged before the upstream itself returns a 429.
package ratelimit

import (
	"sync"
	"time"
)

// Info holds one response's worth of Anthropic rate limit headroom for a
// specific model.
type Info struct {
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`

	RequestsLimit     int       `json:"requests_limit"`
	RequestsRemaining int       `json:"requests_remaining"`
	RequestsReset     time.Time `json:"requests_reset"`

	TokensLimit     int       `json:"tokens_limit"`
	TokensRemaining int       `json:"tokens_remaining"`
	TokensReset     time.Time `json:"tokens_reset"`

	InputTokensLimit     int       `json:"input_tokens_limit,omitempty"`
	InputTokensRemaining int       `json:"input_tokens_remaining,omitempty"`
	InputTokensReset     time.Time `json:"input_tokens_reset,omitempty"`

	OutputTokensLimit     int       `json:"output_tokens_limit,omitempty"`
	OutputTokensRemaining int       `json:"output_tokens_remaining,omitempty"`
	OutputTokensReset     time.Time `json:"output_tokens_reset,omitempty"`

	RequestID  string        `json:"request_id,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Tracker keeps the most recent rate limit Info per model, so the
// gateway can warn about a model approaching exhaustion across
// requests rather than only reacting to the 429 the upstream eventually
// returns.
type Tracker struct {
	mu         sync.RWMutex
	info       map[string]*Info
	lastUpdate time.Time
}

// NewTracker creates a new Tracker instance for tracking rate limits.
func NewTracker() *Tracker {
	return &Tracker{
		info: make(map[string]*Info),
	}
}

// Update records the most recent rate limit Info for info.Model.
func (t *Tracker) Update(info *Info) {
	if info == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.info[info.Model] = info
	t.lastUpdate = time.Now()
}

// Get retrieves the rate limit information for a specific model.
func (t *Tracker) Get(model string) (*Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.info[model]
	return info, exists
}

// CanMakeRequest reports whether a request for model carrying roughly
// estimatedTokens is likely to succeed given the last observed headers.
// With no tracked info for the model it assumes yes.
func (t *Tracker) CanMakeRequest(model string, estimatedTokens int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.info[model]
	if !exists {
		return true
	}

	now := time.Now()
	if !info.RequestsReset.IsZero() && now.After(info.RequestsReset) {
		return true
	}

	if info.RequestsLimit > 0 && info.RequestsRemaining <= 0 {
		return false
	}
	return t.hasEnoughTokens(info, now, estimatedTokens)
}

func (t *Tracker) hasEnoughTokens(info *Info, now time.Time, estimatedTokens int) bool {
	if estimatedTokens <= 0 {
		return true
	}
	if !info.TokensReset.IsZero() && now.Before(info.TokensReset) {
		if info.TokensLimit > 0 && info.TokensRemaining < estimatedTokens {
			return false
		}
	}
	if !info.InputTokensReset.IsZero() && now.Before(info.InputTokensReset) {
		if info.InputTokensLimit > 0 && info.InputTokensRemaining < estimatedTokens {
			return false
		}
	}
	return true
}

// GetWaitTime returns the duration to wait before the next request can be made
// for the given model. If no waiting is required, it returns 0.
func (t *Tracker) GetWaitTime(model string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.info[model]
	if !exists {
		return 0
	}

	if info.RetryAfter > 0 {
		return info.RetryAfter
	}

	now := time.Now()
	var waitUntil time.Time
	for _, reset := range []time.Time{info.RequestsReset, info.TokensReset, info.InputTokensReset, info.OutputTokensReset} {
		if reset.IsZero() || !now.Before(reset) {
			continue
		}
		if waitUntil.IsZero() || reset.Before(waitUntil) {
			waitUntil = reset
		}
	}

	if waitUntil.IsZero() {
		return 0
	}
	return time.Until(waitUntil)
}

// ShouldThrottle reports whether model's usage ratio on any tracked
// dimension (requests, tokens, input tokens, output tokens) is at or
// above threshold (clamped to 0.8 if out of [0,1]).
func (t *Tracker) ShouldThrottle(model string, threshold float64) bool {
	if threshold < 0 || threshold > 1 {
		threshold = 0.8
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.info[model]
	if !exists {
		return false
	}

	now := time.Now()
	return usageRatioAbove(info.RequestsLimit, info.RequestsRemaining, info.RequestsReset, now, threshold) ||
		usageRatioAbove(info.TokensLimit, info.TokensRemaining, info.TokensReset, now, threshold) ||
		usageRatioAbove(info.InputTokensLimit, info.InputTokensRemaining, info.InputTokensReset, now, threshold) ||
		usageRatioAbove(info.OutputTokensLimit, info.OutputTokensRemaining, info.OutputTokensReset, now, threshold)
}

func usageRatioAbove(limit, remaining int, reset, now time.Time, threshold float64) bool {
	if limit <= 0 || reset.IsZero() || !now.Before(reset) {
		return false
	}
	usageRatio := 1.0 - (float64(remaining) / float64(limit))
	return usageRatio >= threshold
}
