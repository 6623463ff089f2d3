package gateway

import (
	"net/http"

	"github.com/kiro-gateway/kiro-gateway/pkg/gateway/middleware"
)

// publicPaths bypass key resolution: only the two operational probes;
// the catalog is not among them (spec.md §6.1: "unauthenticated key check still
// applies" is true only for /v1/models; /healthz and /version are
// ops endpoints the teacher's own /health and /version never gated).
var publicPaths = []string{"/healthz", "/version"}

// NewRouter builds the gateway's http.Handler: route registration plus
// the middleware chain, mirroring pkg/backend/server.go's setupRoutes +
// applyMiddleware split.
func NewRouter(d *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", d.handleChatCompletions)
	mux.HandleFunc("/v1/messages", d.handleMessages)
	mux.HandleFunc("/v1/models", d.handleModels)
	mux.HandleFunc("/healthz", d.handleHealthz)
	mux.HandleFunc("/version", d.handleVersion)

	return applyMiddleware(mux, d)
}

// applyMiddleware wraps the mux in the gateway's middleware chain.
// Applied in reverse order so the documented execution order is
// Recovery -> Logging -> RequestID -> CORS -> RateLimit -> Auth -> Handler,
// matching pkg/backend/server.go's applyMiddleware ordering with
// RateLimit inserted ahead of Auth (rate limiting is cheaper than the
// credential/token-pool lookups Auth triggers downstream).
func applyMiddleware(h http.Handler, d *Dependencies) http.Handler {
	h = middleware.Auth(middleware.AuthConfig{
		ProxyKey:    d.Config.ProxyAPIKey,
		PublicPaths: publicPaths,
	})(h)

	h = middleware.RateLimit(d.Config.RateLimitPerMinute)(h)

	h = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "x-api-key", "Content-Type"},
	})(h)

	h = middleware.RequestID(h)
	h = middleware.Logging(d.Logger)(h)
	h = middleware.Recovery(d.Logger)(h)

	return h
}
