package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
)

// Provider caches quotes per source and symbol.
// Concurrent misses for the same key share one upstream call. That call is
// detached from the caller's context so an abandoned request still fills the
// cache; Timeout bounds it instead.
type Provider struct {
	P       provider.Provider
	Cache   *Cache[provider.Quote]
	Timeout time.Duration

	group singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) key(symbol string) string {
	return c.P.Name() + ":" + asset.Canonical(symbol)
}

func (c *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if c.Cache == nil {
		return c.P.Fetch(ctx, symbol)
	}
	key := c.key(symbol)
	if q, ok := c.Cache.Get(key); ok {
		return q, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if c.Timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.Timeout)
			defer cancel()
		}
		q, err := c.P.Fetch(fctx, symbol)
		if err != nil {
			return provider.Quote{}, err
		}
		c.Cache.Set(key, q)
		return q, nil
	})

	select {
	case <-ctx.Done():
		return provider.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return provider.Quote{}, res.Err
		}
		return res.Val.(provider.Quote), nil
	}
}
