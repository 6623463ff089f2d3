package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit enforces spec.md §6.5's rate_limit_per_minute per API key,
// grounded on the client-side rate.NewLimiter(rate.Every(time.Minute/N), N)
// pattern used throughout pkg/providers/{qwen,gemini}, generalized from one
// limiter per process to one limiter per key. perMinute <= 0 disables the
// middleware entirely.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}

		limiters := &limiterSet{byKey: map[string]*rate.Limiter{}, perMinute: perMinute}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFromRequest(r)
			if !limiters.forKey(key).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"kiro_api_error","code":429}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterSet struct {
	mu        sync.Mutex
	byKey     map[string]*rate.Limiter
	perMinute int
}

func (s *limiterSet) forKey(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.byKey[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute)
	s.byKey[key] = l
	return l
}

// apiKeyFromRequest extracts a raw key string for rate-limit bucketing
// only (not auth); falls back to the remote address when no key header is
// present.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	return r.RemoteAddr
}
