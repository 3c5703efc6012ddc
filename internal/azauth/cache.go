// Package azauth acquires and caches Microsoft identity platform access
// tokens for the Azure-hosted mail capabilities.
package azauth

import (
	"context"
	"sync"
	"time"
)

// tokenExpiryBuffer is the time before actual expiry when we consider a token expired.
const tokenExpiryBuffer = 5 * time.Minute

// Token is an access token as issued by a token endpoint.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Source fetches a fresh token from an identity endpoint.
type Source interface {
	FetchToken(ctx context.Context) (*Token, error)
}

// TokenCache holds the most recent token of a Source and refreshes it
// shortly before it expires. It is safe for concurrent use.
type TokenCache struct {
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	source      Source
	now         func() time.Time
}

// NewTokenCache creates a cache in front of source.
func NewTokenCache(source Source) *TokenCache {
	return &TokenCache{
		source: source,
		now:    time.Now,
	}
}

// Token returns a valid access token, refreshing it if necessary.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.accessToken != "" && tc.now().Before(tc.expiresAt) {
		return tc.accessToken, nil
	}

	return tc.refresh(ctx)
}

// ForceRefresh discards the current token and acquires a new one.
// This is used when a 401 response indicates the token is invalid.
func (tc *TokenCache) ForceRefresh(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.accessToken = ""
	tc.expiresAt = time.Time{}

	return tc.refresh(ctx)
}

// refresh fetches a new token from the source.
// The caller must hold tc.mu.
func (tc *TokenCache) refresh(ctx context.Context) (string, error) {
	tok, err := tc.source.FetchToken(ctx)
	if err != nil {
		return "", err
	}

	tc.accessToken = tok.AccessToken
	tc.expiresAt = tc.now().Add(tok.ExpiresIn - tokenExpiryBuffer)

	return tc.accessToken, nil
}
