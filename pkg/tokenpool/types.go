// Package tokenpool implements the TokenAllocator (spec.md §4.7): per-user
// donated-token selection with public-pool fallback, health-weighted
// ranking, and status transitions fed by credential refresh outcomes.
package tokenpool

import (
	"time"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// Visibility controls whether a DonatedToken is available only to its
// owner or to the shared public pool (spec.md §3 "DonatedToken").
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Status is the DonatedToken lifecycle state (spec.md §4.7 "A DonatedToken
// transitions...").
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusInvalid Status = "INVALID"
	StatusExpired Status = "EXPIRED"
)

// DonatedToken is one pooled refresh-token record (spec.md §3).
type DonatedToken struct {
	ID           string
	OwnerUserID  string
	Visibility   Visibility
	Status       Status
	SuccessCount int
	FailCount    int
	LastUsedAt   time.Time
}

// SuccessRate is success/(success+fail), defaulting to 1.0 on no samples
// (spec.md §3: "Derived: success_rate... defaulting to 1.0 on no
// samples").
func (t DonatedToken) SuccessRate() float64 {
	total := t.SuccessCount + t.FailCount
	if total == 0 {
		return 1.0
	}
	return float64(t.SuccessCount) / float64(total)
}

// User is the persistence layer's user record (spec.md §6.3 "get_user").
type User struct {
	ID       string
	IsBanned bool
}

// TokenCredentials is what get_token_credentials returns: enough to build
// a gwtypes.RefreshCredentials for a CredentialManager.
type TokenCredentials struct {
	RefreshToken      string
	AuthKind          gwtypes.AuthKind
	Region            string
	ProfileIdentifier string
	ClientID          string
	ClientSecret      string
}
