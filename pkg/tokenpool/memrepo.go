package tokenpool

import (
	"context"
	"sync"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
)

// MemRepository is an in-process Repository implementation: a reference
// backing for tests and for single-process deployments that don't need a
// real persistence layer (spec.md §1 names the persistence layer as an
// out-of-scope opaque collaborator; this is a minimal stand-in, not that
// layer).
type MemRepository struct {
	mu sync.Mutex

	apiKeys map[string]string // key -> userID
	users   map[string]User
	tokens  map[string]DonatedToken
	creds   map[string]TokenCredentials
}

// NewMemRepository returns an empty MemRepository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		apiKeys: map[string]string{},
		users:   map[string]User{},
		tokens:  map[string]DonatedToken{},
		creds:   map[string]TokenCredentials{},
	}
}

// AddUser registers a user and, if key is non-empty, an API key for them.
func (r *MemRepository) AddUser(u User, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	if key != "" {
		r.apiKeys[key] = u.ID
	}
}

// AddToken registers a DonatedToken and its credentials.
func (r *MemRepository) AddToken(t DonatedToken, creds TokenCredentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.ID] = t
	r.creds[t.ID] = creds
}

func (r *MemRepository) VerifyUserAPIKey(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.apiKeys[key]
	return userID, ok, nil
}

func (r *MemRepository) GetUser(_ context.Context, userID string) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	return u, ok, nil
}

func (r *MemRepository) GetUserActiveDonatedTokens(_ context.Context, userID string) ([]DonatedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DonatedToken
	for _, t := range r.tokens {
		if t.OwnerUserID == userID && t.Status == StatusActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemRepository) GetPublicActiveDonatedTokens(_ context.Context) ([]DonatedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DonatedToken
	for _, t := range r.tokens {
		if t.Visibility == VisibilityPublic && t.Status == StatusActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemRepository) GetTokenCredentials(_ context.Context, tokenID string) (TokenCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[tokenID]
	if !ok {
		return TokenCredentials{}, gwerrors.Newf(gwerrors.ProtocolViolation, "no credentials for token %s", tokenID)
	}
	return c, nil
}

func (r *MemRepository) RecordTokenUsage(_ context.Context, tokenID string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return nil
	}
	if success {
		t.SuccessCount++
	} else {
		t.FailCount++
	}
	r.tokens[tokenID] = t
	return nil
}

func (r *MemRepository) SetTokenStatus(_ context.Context, tokenID string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return nil
	}
	t.Status = status
	r.tokens[tokenID] = t
	return nil
}
