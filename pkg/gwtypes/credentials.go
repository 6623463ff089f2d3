package gwtypes

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthKind distinguishes the two refresh-token dialects (spec.md §3 and
// GLOSSARY).
type AuthKind string

const (
	AuthKindSocial AuthKind = "SOCIAL"
	AuthKindOIDC   AuthKind = "OIDC"
)

// RefreshCredentials is the persistent identity of one upstream account.
// Immutable at the granularity of a single user action; replaced
// atomically on rotation.
type RefreshCredentials struct {
	RefreshToken      string   `json:"refreshToken"`
	AuthKind          AuthKind `json:"authKind"`
	Region            string   `json:"region"`
	ProfileIdentifier string   `json:"profileArn,omitempty"`

	// Only populated when AuthKind == AuthKindOIDC.
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// AccessCredentials is derived, volatile credential state owned
// exclusively by a CredentialManager. It embeds oauth2.Token as its
// storage shape (AccessToken, RefreshToken, Expiry) rather than a
// hand-rolled equivalent, per SPEC_FULL.md §3.
type AccessCredentials struct {
	oauth2.Token

	// ProfileIdentifier may be returned by the refresh response and
	// should override RefreshCredentials.ProfileIdentifier when present.
	ProfileIdentifier string
}

// ExpiresAt is the absolute, UTC expiry time (already skewed 60s earlier
// than the server-reported value, per spec.md §4.1).
func (a AccessCredentials) ExpiresAt() time.Time { return a.Expiry }

// FreshFor reports whether the token has more than threshold remaining
// before ExpiresAt, i.e. whether get_access_token may return it as-is
// (spec.md §4.1 invariant (b)).
func (a AccessCredentials) FreshFor(threshold time.Duration, now time.Time) bool {
	if a.AccessToken == "" {
		return false
	}
	return a.Expiry.Sub(now) > threshold
}
