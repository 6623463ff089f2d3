// Package credential implements the CredentialManager described in
// spec.md §4.1: per-(refresh_token, region) refresh/access token
// lifecycle, lock-protected refresh, and the two auth dialects.
//
// Grounded on pkg/oauthmanager/oauthmanager.go's refreshInFlight-guarded,
// per-manager-mutex discipline, collapsed from "many credentials per
// manager" to "one credential, one manager" — AuthCache (pkg/authcache)
// is what handles the many-credentials case here.
package credential

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kiro-gateway/kiro-gateway/pkg/fingerprint"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// State is the CredentialManager state machine position (spec.md §4.1).
type State int

const (
	StateUninitialized State = iota
	StateRefreshing
	StateValid
	StateExpiring
)

// Refresher performs the provider-specific HTTP refresh call. It is
// implemented by the two dialects in dialects.go.
type Refresher interface {
	Refresh(ctx context.Context, client *http.Client, refresh gwtypes.RefreshCredentials) (refreshResult, error)
}

type refreshResult struct {
	AccessToken  string
	RefreshToken string // may be empty: no rotation
	ExpiresIn    int64  // seconds; 0 means "use default 3600"
	ProfileArn   string
}

// Manager bundles one RefreshCredentials with a lazily-populated
// AccessCredentials and a mutex. Exactly one refresh is ever in flight
// (spec.md §4.1 invariant (a)).
type Manager struct {
	mu    sync.Mutex
	state State

	refresh gwtypes.RefreshCredentials
	access  *gwtypes.AccessCredentials

	threshold time.Duration
	client    *http.Client
	store     *FileStore // nil when no creds_file is configured
	log       gwlog.Logger

	// refreshInFlight is a single-slot marker: a goroutine that finds it
	// true waits on cond instead of starting a second refresh.
	refreshInFlight bool
	cond            *sync.Cond
}

// Config configures a new Manager.
type Config struct {
	Threshold time.Duration // default 300s if zero
	Client    *http.Client  // default http.DefaultClient if nil
	Store     *FileStore    // optional persisted-credentials file
	Logger    gwlog.Logger  // default gwlog.NopLogger{} if nil
}

// New constructs a Manager for one refresh credential.
func New(refresh gwtypes.RefreshCredentials, cfg Config) *Manager {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 300 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = gwlog.NopLogger{}
	}
	m := &Manager{
		refresh:   refresh,
		threshold: cfg.Threshold,
		client:    cfg.Client,
		store:     cfg.Store,
		log:       cfg.Logger,
		state:     StateUninitialized,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// RefreshToken returns the current refresh token value (read-only
// observability; used as the AuthCache key).
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh.RefreshToken
}

// State returns the manager's current state-machine position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetAccessToken returns a fresh access token, refreshing if necessary
// (spec.md §4.1). It fails with gwerrors.CredentialMissing if no refresh
// token is configured, gwerrors.UpstreamTransient after exhausting
// refresh retries, gwerrors.ProtocolViolation if the refresh response
// omits accessToken, or gwerrors.AuthRejected on a terminal 4xx.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.refresh.RefreshToken == "" {
		m.mu.Unlock()
		return "", gwerrors.New(gwerrors.CredentialMissing, "no refresh token configured")
	}
	if m.access != nil && m.access.FreshFor(m.threshold, time.Now()) {
		token := m.access.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	return m.doRefresh(ctx, false)
}

// ForceRefresh unconditionally performs a refresh (used by
// RetryingUpstreamClient on 403, spec.md §4.3 step 3).
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	return m.doRefresh(ctx, true)
}

// doRefresh coordinates the single-in-flight-refresh invariant. m.mu is
// held only for state transitions, not across the network call itself:
// refreshInFlight marks a refresh in progress, and later callers block on
// cond until it completes and then read the (now fresh) state. Unless
// force is set, a caller that finds a fresh token after waiting returns
// it without starting another refresh.
func (m *Manager) doRefresh(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	for m.refreshInFlight {
		m.cond.Wait()
	}
	// Another goroutine may have refreshed while we waited for the lock;
	// re-check freshness before starting a new refresh.
	if !force && m.access != nil && m.access.FreshFor(m.threshold, time.Now()) {
		token := m.access.AccessToken
		m.mu.Unlock()
		return token, nil
	}

	m.refreshInFlight = true
	m.state = StateRefreshing
	refresh := m.refresh
	m.mu.Unlock()

	result, err := m.refreshWithRetry(ctx, refresh)

	m.mu.Lock()
	defer func() {
		m.refreshInFlight = false
		m.cond.Broadcast()
		m.mu.Unlock()
	}()

	if err != nil {
		m.state = StateUninitialized
		return "", err
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	expiresAt := time.Now().Add(time.Duration(expiresIn)*time.Second - 60*time.Second)

	newRefreshToken := m.refresh.RefreshToken
	if result.RefreshToken != "" {
		newRefreshToken = result.RefreshToken
	}

	// Persist before overwriting in-memory state (spec.md §4.1 invariant
	// (c)): a crash mid-write must leave readable stale state, not a
	// missing one.
	if m.store != nil {
		if perr := m.store.Persist(Overlay{
			AccessToken:  result.AccessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    expiresAt,
			ProfileArn:   result.ProfileArn,
		}); perr != nil {
			m.log.Warn("failed to persist refreshed credentials", "error", perr)
		}
	}

	m.refresh.RefreshToken = newRefreshToken
	m.access = &gwtypes.AccessCredentials{
		ProfileIdentifier: result.ProfileArn,
	}
	m.access.AccessToken = result.AccessToken
	m.access.RefreshToken = newRefreshToken
	m.access.Expiry = expiresAt
	m.state = StateValid

	return result.AccessToken, nil
}

// refreshWithRetry issues up to 3 refresh attempts with exponential
// backoff (base 1s: 1s before the second, 2s before the third) on
// 429/5xx/connection errors/timeouts, per
// spec.md §4.1 "Retry policy for refresh". Other non-2xx statuses fail
// immediately as gwerrors.AuthRejected.
func (m *Manager) refreshWithRetry(ctx context.Context, refresh gwtypes.RefreshCredentials) (refreshResult, error) {
	dialect := dialectFor(refresh.AuthKind)

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return refreshResult{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := dialect.Refresh(ctx, m.client, refresh)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableRefreshError(err) {
			return refreshResult{}, err
		}
	}

	return refreshResult{}, gwerrors.Wrap(gwerrors.UpstreamTransient, lastErr, "refresh retries exhausted")
}

func isRetryableRefreshError(err error) bool {
	kind, ok := gwerrors.Of(err)
	if !ok {
		return true // errors without a gwerrors Kind are treated as transient
	}
	return kind == gwerrors.UpstreamTransient
}

func dialectFor(kind gwtypes.AuthKind) Refresher {
	switch kind {
	case gwtypes.AuthKindOIDC:
		return oidcDialect{}
	default:
		return socialDialect{}
	}
}

// fingerprintUserAgent is exposed for the two dialect implementations.
func fingerprintUserAgent() string { return fingerprint.UserAgent() }
