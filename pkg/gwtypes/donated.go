package gwtypes

import "time"

// TokenVisibility controls whether a DonatedToken is usable only by its
// owner or falls into the public pool (GLOSSARY: "Public pool").
type TokenVisibility string

const (
	VisibilityPublic  TokenVisibility = "PUBLIC"
	VisibilityPrivate TokenVisibility = "PRIVATE"
)

// TokenStatus is the lifecycle state of a DonatedToken (spec.md §3, §4.7).
type TokenStatus string

const (
	TokenActive  TokenStatus = "ACTIVE"
	TokenInvalid TokenStatus = "INVALID"
	TokenExpired TokenStatus = "EXPIRED"
)

// DonatedToken is a persistence-layer record: a refresh token a user has
// contributed, optionally to the shared public pool (spec.md §3, §6.3).
type DonatedToken struct {
	ID           string
	OwnerUserID  string
	Refresh      RefreshCredentials
	Visibility   TokenVisibility
	Status       TokenStatus
	SuccessCount int64
	FailCount    int64
	LastUsedAt   time.Time
}

// SuccessRate returns success/(success+fail), defaulting to 1.0 when there
// are no samples yet (spec.md §3).
func (t DonatedToken) SuccessRate() float64 {
	total := t.SuccessCount + t.FailCount
	if total == 0 {
		return 1.0
	}
	return float64(t.SuccessCount) / float64(total)
}
