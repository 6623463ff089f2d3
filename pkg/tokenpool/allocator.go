package tokenpool

import (
	"context"
	"sort"
	"strings"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
)

// Allocator implements spec.md §4.7's candidate selection and ranking.
type Allocator struct {
	repo Repository
}

// New builds an Allocator over repo.
func New(repo Repository) *Allocator {
	return &Allocator{repo: repo}
}

// Allocate picks the healthiest available DonatedToken for userID: the
// user's own ACTIVE tokens, falling back to the PUBLIC ACTIVE pool, else
// gwerrors.NoTokenAvailable (spec.md §4.7 step 1).
func (a *Allocator) Allocate(ctx context.Context, userID string) (DonatedToken, error) {
	owned, err := a.repo.GetUserActiveDonatedTokens(ctx, userID)
	if err != nil {
		return DonatedToken{}, err
	}
	if len(owned) > 0 {
		return rank(owned)[0], nil
	}

	public, err := a.repo.GetPublicActiveDonatedTokens(ctx)
	if err != nil {
		return DonatedToken{}, err
	}
	if len(public) > 0 {
		return rank(public)[0], nil
	}

	return DonatedToken{}, gwerrors.New(gwerrors.NoTokenAvailable, "no active donated tokens available")
}

// rank orders candidates by success_rate descending, tie-breaking on
// last_used_at ascending (spec.md §4.7 step 2), returning a new sorted
// slice.
func rank(tokens []DonatedToken) []DonatedToken {
	out := make([]DonatedToken, len(tokens))
	copy(out, tokens)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SuccessRate() != out[j].SuccessRate() {
			return out[i].SuccessRate() > out[j].SuccessRate()
		}
		return out[i].LastUsedAt.Before(out[j].LastUsedAt)
	})
	return out
}

// RecordOutcome updates a token's usage counters and, on a terminal
// refresh rejection, its status (spec.md §4.7 "A DonatedToken transitions
// ACTIVE → INVALID... ACTIVE → EXPIRED..."). usageErr is the error (if
// any) the request against this token's credentials ultimately failed
// with; nil records success.
func (a *Allocator) RecordOutcome(ctx context.Context, tokenID string, usageErr error) error {
	success := usageErr == nil
	if err := a.repo.RecordTokenUsage(ctx, tokenID, success); err != nil {
		return err
	}

	kind, ok := gwerrors.Of(usageErr)
	if !ok || kind != gwerrors.AuthRejected {
		return nil
	}

	status := StatusInvalid
	if isExpiredRejection(usageErr) {
		status = StatusExpired
	}
	return a.repo.SetTokenStatus(ctx, tokenID, status)
}

// isExpiredRejection best-effort-detects an AuthRejected error whose
// message indicates the refresh token itself expired, rather than being
// rejected for some other terminal reason (spec.md §4.7: "ACTIVE → EXPIRED
// if the refresh token itself is rejected as expired").
func isExpiredRejection(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "expired")
}
