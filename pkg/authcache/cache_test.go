package authcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiro-gateway/kiro-gateway/pkg/credential"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

func newManager(refreshToken string) *credential.Manager {
	return credential.New(gwtypes.RefreshCredentials{RefreshToken: refreshToken, AuthKind: gwtypes.AuthKindSocial, Region: "test"}, credential.Config{})
}

func TestGetOrCreate_ReturnsSameManagerOnHit(t *testing.T) {
	var created int
	c := New(10, func(token string) *credential.Manager {
		created++
		return newManager(token)
	})

	m1 := c.GetOrCreate("rt-1")
	m2 := c.GetOrCreate("rt-1")

	assert.Same(t, m1, m2)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, c.Size())
}

func TestGetOrCreate_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, func(token string) *credential.Manager { return newManager(token) })

	m1 := c.GetOrCreate("rt-1")
	c.GetOrCreate("rt-2")
	// touch rt-1 so rt-2 becomes the LRU victim
	c.GetOrCreate("rt-1")
	c.GetOrCreate("rt-3")

	require.Equal(t, 2, c.Size())
	assert.Same(t, m1, c.GetOrCreate("rt-1"))

	var recreated bool
	c2 := New(2, func(token string) *credential.Manager {
		recreated = true
		return newManager(token)
	})
	c2.GetOrCreate("rt-2")
	c2.GetOrCreate("rt-1")
	c2.GetOrCreate("rt-3")
	recreated = false
	c2.GetOrCreate("rt-2")
	assert.True(t, recreated, "rt-2 should have been evicted and require recreation")
}

func TestRemove(t *testing.T) {
	c := New(10, func(token string) *credential.Manager { return newManager(token) })
	m1 := c.GetOrCreate("rt-1")
	c.Remove("rt-1")
	assert.Equal(t, 0, c.Size())

	m2 := c.GetOrCreate("rt-1")
	assert.NotSame(t, m1, m2)
}

func TestClear(t *testing.T) {
	c := New(10, func(token string) *credential.Manager { return newManager(token) })
	c.GetOrCreate("rt-1")
	c.GetOrCreate("rt-2")
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
