package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)

	rc, ok := c.(*RistrettoCache)
	require.True(t, ok)
	t.Cleanup(rc.Close)
	return rc
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("binance|BTC/USD", 42000.0, time.Minute)
	require.True(t, ok)
	c.Wait()

	v, found := c.Get("binance|BTC/USD")
	require.True(t, found)
	assert.Equal(t, 42000.0, v)

	_, found = c.Get("kraken|BTC/USD")
	assert.False(t, found)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("short-lived", "value", 10*time.Millisecond)
	c.Wait()

	_, found := c.Get("short-lived")
	require.True(t, found)

	time.Sleep(30 * time.Millisecond)
	_, found = c.Get("short-lived")
	assert.False(t, found, "entry should expire after its TTL")
}

func TestDeleteAndClear(t *testing.T) {
	c := newTestCache(t)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Wait()

	c.Delete("a")
	_, found := c.Get("a")
	assert.False(t, found)

	c.Clear()
	_, found = c.Get("b")
	assert.False(t, found)
}
