// Package gateway wires the gateway's http.Handler: routes, middleware,
// and the long-lived dependency graph routes are handled against.
// Grounded on pkg/backend/server.go's Server/NewServer/setupRoutes
// structure, generalized from the teacher's single-provider registry to
// the two fixed downstream dialects spec.md §6.1 names.
package gateway

import (
	"net/http"

	"github.com/kiro-gateway/kiro-gateway/pkg/authcache"
	"github.com/kiro-gateway/kiro-gateway/pkg/credential"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwconfig"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
	"github.com/kiro-gateway/kiro-gateway/pkg/tokenpool"
	"github.com/kiro-gateway/kiro-gateway/pkg/upstream"
)

// Dependencies bundles the three long-lived singletons the process
// builds once in cmd/kiro-gateway/main.go (SPEC_FULL.md §2: "Global
// mutable state is forbidden at package scope... threaded through a
// *gateway.Dependencies struct"), plus the config and logger every
// handler and middleware needs.
type Dependencies struct {
	Config     gwconfig.Config
	Logger     gwlog.Logger
	AuthCache  *authcache.Cache
	Upstream   *upstream.Client
	Allocator  *tokenpool.Allocator
	Repository tokenpool.Repository

	registry *credentialRegistry
}

// NewDependencies wires the AuthCache's Factory over a fresh
// credentialRegistry and registers the single-tenant default refresh
// token (if configured), mirroring pkg/backend/server.go's NewServer
// eagerly building everything the handlers need up front.
func NewDependencies(cfg gwconfig.Config, logger gwlog.Logger, store *credential.FileStore, httpClient *http.Client, upstreamClient *upstream.Client, repo tokenpool.Repository) *Dependencies {
	if logger == nil {
		logger = gwlog.NopLogger{}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	reg := newCredentialRegistry()

	if cfg.RefreshToken != "" {
		authKind := gwtypes.AuthKindSocial
		if cfg.ClientID != "" && cfg.ClientSecret != "" {
			authKind = gwtypes.AuthKindOIDC
		}
		reg.put(gwtypes.RefreshCredentials{
			RefreshToken:      cfg.RefreshToken,
			AuthKind:          authKind,
			Region:            cfg.Region,
			ProfileIdentifier: cfg.ProfileArn,
			ClientID:          cfg.ClientID,
			ClientSecret:      cfg.ClientSecret,
		})
	}

	cache := authcache.New(cfg.AuthCacheSize, reg.factory(store, httpClient, cfg.TokenRefreshThreshold, cfg.Region, logger))

	var allocator *tokenpool.Allocator
	if repo != nil {
		allocator = tokenpool.New(repo)
	}

	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		AuthCache:  cache,
		Upstream:   upstreamClient,
		Allocator:  allocator,
		Repository: repo,
		registry:   reg,
	}
}
