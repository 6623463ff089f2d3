package tokenpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
)

func TestAllocate_PrefersOwnedOverPublic(t *testing.T) {
	repo := NewMemRepository()
	repo.AddToken(DonatedToken{ID: "owned", OwnerUserID: "u1", Status: StatusActive}, TokenCredentials{RefreshToken: "r1"})
	repo.AddToken(DonatedToken{ID: "public", Visibility: VisibilityPublic, Status: StatusActive}, TokenCredentials{RefreshToken: "r2"})

	a := New(repo)
	tok, err := a.Allocate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "owned", tok.ID)
}

func TestAllocate_FallsBackToPublicWhenNoOwnedTokens(t *testing.T) {
	repo := NewMemRepository()
	repo.AddToken(DonatedToken{ID: "public", Visibility: VisibilityPublic, Status: StatusActive}, TokenCredentials{RefreshToken: "r2"})

	a := New(repo)
	tok, err := a.Allocate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "public", tok.ID)
}

func TestAllocate_NoTokenAvailable(t *testing.T) {
	a := New(NewMemRepository())
	_, err := a.Allocate(context.Background(), "u1")
	require.Error(t, err)
	kind, ok := gwerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.NoTokenAvailable, kind)
}

func TestRank_OrdersBySuccessRateThenLastUsed(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	tokens := []DonatedToken{
		{ID: "low", SuccessCount: 1, FailCount: 9, LastUsedAt: older},
		{ID: "high-newer", SuccessCount: 9, FailCount: 1, LastUsedAt: newer},
		{ID: "high-older", SuccessCount: 9, FailCount: 1, LastUsedAt: older},
	}
	ranked := rank(tokens)
	require.Len(t, ranked, 3)
	assert.Equal(t, "high-older", ranked[0].ID)
	assert.Equal(t, "high-newer", ranked[1].ID)
	assert.Equal(t, "low", ranked[2].ID)
}

func TestDonatedToken_SuccessRateDefaultsToOne(t *testing.T) {
	tok := DonatedToken{}
	assert.Equal(t, 1.0, tok.SuccessRate())
}

func TestRecordOutcome_AuthRejectedMarksInvalid(t *testing.T) {
	repo := NewMemRepository()
	repo.AddToken(DonatedToken{ID: "t1", OwnerUserID: "u1", Status: StatusActive}, TokenCredentials{RefreshToken: "r1"})

	a := New(repo)
	err := a.RecordOutcome(context.Background(), "t1", gwerrors.New(gwerrors.AuthRejected, "refresh endpoint returned 401"))
	require.NoError(t, err)

	toks, _ := repo.GetUserActiveDonatedTokens(context.Background(), "u1")
	assert.Empty(t, toks) // no longer ACTIVE
}

func TestRecordOutcome_ExpiredRejectionMarksExpired(t *testing.T) {
	repo := NewMemRepository()
	repo.AddToken(DonatedToken{ID: "t1", OwnerUserID: "u1", Status: StatusActive}, TokenCredentials{RefreshToken: "r1"})

	a := New(repo)
	require.NoError(t, a.RecordOutcome(context.Background(), "t1", gwerrors.New(gwerrors.AuthRejected, "refresh token expired")))

	u, _, _ := repo.GetUser(context.Background(), "u1")
	_ = u
	tok, ok, _ := lookupToken(repo, "t1")
	require.True(t, ok)
	assert.Equal(t, StatusExpired, tok.Status)
}

func TestRecordOutcome_SuccessRecordsUsageWithoutStatusChange(t *testing.T) {
	repo := NewMemRepository()
	repo.AddToken(DonatedToken{ID: "t1", OwnerUserID: "u1", Status: StatusActive}, TokenCredentials{RefreshToken: "r1"})

	a := New(repo)
	require.NoError(t, a.RecordOutcome(context.Background(), "t1", nil))

	tok, ok, _ := lookupToken(repo, "t1")
	require.True(t, ok)
	assert.Equal(t, StatusActive, tok.Status)
	assert.Equal(t, 1, tok.SuccessCount)
}

func lookupToken(repo *MemRepository, id string) (DonatedToken, bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	t, ok := repo.tokens[id]
	return t, ok, nil
}
