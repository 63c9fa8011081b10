package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelhub/internal/cache"
)

func newTestTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return NewTokenStore(c), mr
}

func TestTokenStore_RevokeUntilExpiry(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Minute))
	revoked, _ = store.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked, "entry should expire with the token")
}

func TestTokenStore_IgnoresEmptyAndExpired(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "", time.Minute))
	require.NoError(t, store.Revoke(ctx, "jti-2", 0))
	assert.Empty(t, mr.Keys())
}

func TestTokenStore_ReportsRedisOutage(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()
	mr.Close()

	assert.Error(t, store.Revoke(ctx, "jti-3", time.Minute))
	_, err := store.IsRevoked(ctx, "jti-3")
	assert.Error(t, err)
}
