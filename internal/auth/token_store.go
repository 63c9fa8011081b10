package auth

import (
	"context"
	"fmt"
	"time"

	"travelhub/internal/cache"
)

const revokedTokenKeyPrefix = "revoked:token:"

// TokenRevoker records tokens that were logged out before their expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore keeps the revocation list in Redis. Entries expire together with
// the token they revoke, so the list never outgrows the live sessions.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenRevoker
var _ TokenRevoker = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// Revoke marks tokenID as logged out for ttl.
func (s *TokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := s.cache.SetStrict(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether tokenID was logged out. Redis errors are returned
// so the gate can reject the token.
func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	revoked, err := s.cache.Exists(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return revoked, nil
}
