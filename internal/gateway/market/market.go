// Package market adapts a DexScreener-shaped HTTP API to the
// scanner.MarketDataOracle and jobs.PriceOracle contracts, with request
// pacing and circuit breaking so a slow or down provider never blocks
// the scanner or the price-refresh job.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/chainpulse/signal-engine/pkg/models"
)

const dexscreenerBaseURL = "https://api.dexscreener.com/latest/dex/tokens/"

// Client queries a DexScreener-compatible endpoint, rate limited and
// circuit-broken, with a 5-minute result cache (found and "no data" alike)
// so repeated lookups for the same address don't keep hitting the network.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	mu      sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	data    *models.MarketData
	fetched time.Time
}

const cacheTTL = 5 * time.Minute

// New builds a Client with the spec default 30s deadline and a
// conservative 5 req/s, burst-10 pace against the provider.
func New() *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: dexscreenerBaseURL,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "market-data-oracle",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		timeout: 30 * time.Second,
		cache:   make(map[string]cacheEntry),
	}
}

type dexScreenerResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	URL       string `json:"url"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
	} `json:"quoteToken"`
	PriceUSD  string `json:"priceUsd"`
	FDV       float64 `json:"fdv"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PriceChange struct {
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

// Lookup satisfies scanner.MarketDataOracle and jobs.PriceOracle. It
// returns (nil, nil) when the provider has no data for the address, per
// the caller's "skip tokens with no market data" rule.
func (c *Client) Lookup(ctx context.Context, address, chain string) (*models.MarketData, error) {
	if cached, ok := c.getCached(address); ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("market data lookup failed: %w", err)
	}

	data, _ := result.(*models.MarketData)
	c.setCached(address, data)
	if data == nil {
		return nil, nil
	}
	if data.Chain == "" {
		data.Chain = chain
	}
	return data, nil
}

func (c *Client) fetch(ctx context.Context, address string) (*models.MarketData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+address, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var parsed dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode dexscreener response: %w", err)
	}
	if len(parsed.Pairs) == 0 {
		return nil, nil
	}

	sort.Slice(parsed.Pairs, func(i, j int) bool {
		return parsed.Pairs[i].Liquidity.USD > parsed.Pairs[j].Liquidity.USD
	})
	pair := parsed.Pairs[0]

	base := pair.BaseToken
	if !strings.EqualFold(base.Address, address) {
		base = pair.QuoteToken
	}

	price, _ := strconv.ParseFloat(pair.PriceUSD, 64)

	return &models.MarketData{
		Symbol:         base.Symbol,
		Name:           base.Name,
		PriceUSD:       price,
		MarketCap:      pair.FDV,
		LiquidityUSD:   pair.Liquidity.USD,
		PriceChange1h:  pair.PriceChange.H1,
		PriceChange24h: pair.PriceChange.H24,
		Volume24h:      pair.Volume.H24,
		Chain:          pair.ChainID,
		ImageURL:       pair.Info.ImageURL,
		DexURL:         pair.URL,
	}, nil
}

func (c *Client) getCached(address string) (*models.MarketData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[address]
	if !ok || time.Since(entry.fetched) > cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) setCached(address string, data *models.MarketData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[address] = cacheEntry{data: data, fetched: time.Now()}
}
