package exchange

import (
	"context"
	"time"

	"github.com/quorumtrade/poolarb/pkg/cache"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// CachedProvider wraps a Provider with a short-TTL quote cache so a scan
// cycle does not hammer the oracle for symbols quoted on many venues.
// Orders and balances always pass through.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps p with a quote cache.
func NewCachedProvider(p Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: p, cache: c, ttl: ttl}
}

// GetQuote returns a cached quote when fresh, fetching otherwise.
func (c *CachedProvider) GetQuote(ctx context.Context, venue, symbol string) (types.Quote, error) {
	key := venue + "|" + symbol
	if v, ok := c.cache.Get(key); ok {
		if q, ok := v.(types.Quote); ok {
			return q, nil
		}
	}

	q, err := c.inner.GetQuote(ctx, venue, symbol)
	if err != nil {
		return types.Quote{}, err
	}

	c.cache.Set(key, q, c.ttl)
	return q, nil
}

// PlaceOrder passes through to the wrapped provider.
func (c *CachedProvider) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Fill, error) {
	return c.inner.PlaceOrder(ctx, req)
}

// CancelOrder passes through to the wrapped provider.
func (c *CachedProvider) CancelOrder(ctx context.Context, venue, orderID string) error {
	return c.inner.CancelOrder(ctx, venue, orderID)
}

// GetBalance passes through to the wrapped provider.
func (c *CachedProvider) GetBalance(ctx context.Context, venue, asset string) (float64, error) {
	return c.inner.GetBalance(ctx, venue, asset)
}
