package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/gateway/middleware"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwconfig"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/tokenpool"
	"github.com/kiro-gateway/kiro-gateway/pkg/upstream"
)

func TestResolveCredential_ProxyModeUsesDefaultRefreshToken(t *testing.T) {
	d := testDeps(t)

	rc, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeProxy})
	require.NoError(t, err)
	assert.Equal(t, "rt-default", rc.Manager.RefreshToken())
	assert.Empty(t, rc.TokenID)
}

func TestResolveCredential_ProxyModeFailsWithoutDefault(t *testing.T) {
	cfg := gwconfig.Defaults()
	cfg.ProxyAPIKey = "proxy123"
	d := NewDependencies(cfg, gwlog.NopLogger{}, nil, nil, upstream.New(upstream.Config{}), nil)

	_, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeProxy})
	assert.Error(t, err)
}

func TestResolveCredential_ProxyWithRefreshTokenRoutesPerRequest(t *testing.T) {
	d := testDeps(t)

	rc, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{
		Mode:         middleware.KeyModeProxyWithRefreshToken,
		RefreshToken: "rt-tenant-a",
	})
	require.NoError(t, err)
	assert.Equal(t, "rt-tenant-a", rc.Manager.RefreshToken())
}

func TestResolveCredential_UserKeyAllocatesDonatedToken(t *testing.T) {
	repo := tokenpool.NewMemRepository()
	repo.AddUser(tokenpool.User{ID: "u1"}, "sk-abc123")
	repo.AddToken(
		tokenpool.DonatedToken{ID: "tok1", OwnerUserID: "u1", Visibility: tokenpool.VisibilityPrivate, Status: tokenpool.StatusActive},
		tokenpool.TokenCredentials{RefreshToken: "rt-donated", Region: "us-west-2"},
	)

	cfg := gwconfig.Defaults()
	d := NewDependencies(cfg, gwlog.NopLogger{}, nil, nil, upstream.New(upstream.Config{}), repo)

	rc, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeUserKey, UserKey: "sk-abc123"})
	require.NoError(t, err)
	assert.Equal(t, "rt-donated", rc.Manager.RefreshToken())
	assert.Equal(t, "tok1", rc.TokenID)
	assert.Equal(t, "us-west-2", rc.Region)
}

func TestResolveCredential_UserKeyRejectsBannedUser(t *testing.T) {
	repo := tokenpool.NewMemRepository()
	repo.AddUser(tokenpool.User{ID: "u1", IsBanned: true}, "sk-abc123")

	cfg := gwconfig.Defaults()
	d := NewDependencies(cfg, gwlog.NopLogger{}, nil, nil, upstream.New(upstream.Config{}), repo)

	_, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeUserKey, UserKey: "sk-abc123"})
	assert.Error(t, err)
}

func TestResolveCredential_UserKeyUnknownFails(t *testing.T) {
	repo := tokenpool.NewMemRepository()
	cfg := gwconfig.Defaults()
	d := NewDependencies(cfg, gwlog.NopLogger{}, nil, nil, upstream.New(upstream.Config{}), repo)

	_, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeUserKey, UserKey: "sk-nope"})
	assert.Error(t, err)
}

func TestResolveCredential_UserKeyWithoutRepositoryFails(t *testing.T) {
	d := testDeps(t)

	_, err := d.resolveCredential(context.Background(), middleware.ResolvedKey{Mode: middleware.KeyModeUserKey, UserKey: "sk-abc"})
	assert.Error(t, err)
}
