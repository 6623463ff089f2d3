package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/kiro-gateway/kiro-gateway/pkg/authcache"
	"github.com/kiro-gateway/kiro-gateway/pkg/credential"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// credentialRegistry is the instance-scoped (not package-scoped) side
// table mapping a refresh token to the full gwtypes.RefreshCredentials
// needed to construct a *credential.Manager. AuthCache's Factory only
// receives the refresh token string (spec.md §4.2's get_or_create takes
// just the token), so anything discovering a new refresh token — the
// single-tenant default, a proxy_key:refresh_token request, or a
// donated-token lookup — registers it here first.
type credentialRegistry struct {
	mu      sync.Mutex
	byToken map[string]gwtypes.RefreshCredentials
}

func newCredentialRegistry() *credentialRegistry {
	return &credentialRegistry{byToken: map[string]gwtypes.RefreshCredentials{}}
}

func (r *credentialRegistry) put(rc gwtypes.RefreshCredentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[rc.RefreshToken] = rc
}

func (r *credentialRegistry) get(refreshToken string) (gwtypes.RefreshCredentials, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.byToken[refreshToken]
	return rc, ok
}

// factory builds the authcache.Factory closed over this registry. An
// unregistered token falls back to a bare SOCIAL credential for the
// given region. The three resolution paths in this package (default
// token, proxy_key:refresh_token, donated token) all call put() before
// GetOrCreate, so the fallback only applies to a caller that skips put().
func (r *credentialRegistry) factory(store *credential.FileStore, client *http.Client, threshold time.Duration, region string, logger gwlog.Logger) authcache.Factory {
	return func(refreshToken string) *credential.Manager {
		rc, ok := r.get(refreshToken)
		if !ok {
			rc = gwtypes.RefreshCredentials{RefreshToken: refreshToken, AuthKind: gwtypes.AuthKindSocial, Region: region}
		}
		return credential.New(rc, credential.Config{
			Threshold: threshold,
			Client:    client,
			Store:     store,
			Logger:    logger,
		})
	}
}
