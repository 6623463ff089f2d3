package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
)

// Recovery recovers a panicking handler and returns a generic 500,
// logging the stack trace (pkg/backend/middleware/recovery.go, adapted
// onto gwlog.Logger).
func Recovery(logger gwlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"request_id", GetRequestID(r.Context()),
						"error", err,
						"stack", string(debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":{"message":"internal error","type":"kiro_api_error","code":500}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
