// Package middleware provides the gateway's HTTP middleware chain:
// request-id tagging, CORS, structured logging, panic recovery, API key
// parsing, and per-key rate limiting — adapted from pkg/backend/middleware's
// equivalents (distinct files there: request_id.go, cors.go, logging.go,
// recovery.go, auth.go) onto gwlog.Logger and the gateway's three-mode
// API-key model (spec.md §6.1) in place of the teacher's single shared
// bearer password.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type contextKey string

// RequestIDKey is the context key under which the request id is stored.
const RequestIDKey contextKey = "request_id"

// RequestID assigns (or propagates) a request id and stores it in the
// request context, mirroring pkg/backend/middleware/request_id.go.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request id stashed by RequestID, or "" if
// absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
