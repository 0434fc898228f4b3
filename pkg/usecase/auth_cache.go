package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/m-mizutani/goerr/v2"
)

const (
	keySetCacheTTL = 5 * time.Minute
)

// keySetCache keeps the JWKS document between requests
type keySetCache struct {
	url   string
	fetch func(ctx context.Context, url string) (jwk.Set, error)

	mu        sync.Mutex
	set       jwk.Set
	expiresAt time.Time
}

func newKeySetCache(url string) *keySetCache {
	return &keySetCache{
		url: url,
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
	}
}

func (c *keySetCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil && time.Now().Before(c.expiresAt) {
		return c.set, nil
	}

	set, err := c.fetch(ctx, c.url)
	if err != nil {
		// Serve the stale set while the issuer is unreachable
		if c.set != nil {
			return c.set, nil
		}
		return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("jwks_url", c.url))
	}

	c.set = set
	c.expiresAt = time.Now().Add(keySetCacheTTL)
	return set, nil
}
