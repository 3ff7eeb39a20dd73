package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New()
	c.baseURL = srv.URL + "/"
	return c, &hits
}

func TestLookupReturnsHighestLiquidityPair(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[
			{"chainId":"solana","priceUsd":"1.0","liquidity":{"usd":1000},"baseToken":{"address":"addrX","symbol":"LOW"}},
			{"chainId":"solana","priceUsd":"2.0","liquidity":{"usd":50000},"baseToken":{"address":"addrX","symbol":"FOO"}}
		]}`)
	})

	data, err := c.Lookup(context.Background(), "addrX", "solana")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "FOO", data.Symbol)
	assert.Equal(t, 2.0, data.PriceUSD)
}

func TestLookupNoPairsReturnsNilNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[]}`)
	})

	data, err := c.Lookup(context.Background(), "addrY", "solana")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLookupCachesWithinTTL(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[{"chainId":"solana","priceUsd":"1.0","liquidity":{"usd":1000},"baseToken":{"address":"addrZ","symbol":"BAR"}}]}`)
	})

	_, err := c.Lookup(context.Background(), "addrZ", "solana")
	require.NoError(t, err)
	_, err = c.Lookup(context.Background(), "addrZ", "solana")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}
